package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndJoinTeam(t *testing.T) {
	e := newTestEnv(t, time.Date(2024, time.March, 11, 8, 0, 0, 0, seoul(t)), nil)
	kim := e.member(t, "kim")
	lee := e.member(t, "lee")

	_, err := e.teams.CreateTeam(e.ctx, kim, "  ")
	require.ErrorIs(t, err, ErrInvalidTeam)

	team, err := e.teams.CreateTeam(e.ctx, kim, "morning crew")
	require.NoError(t, err)
	require.Equal(t, kim.ID, team.LeaderID)
	require.True(t, team.HasMember(kim.ID))

	joined, err := e.teams.JoinTeam(e.ctx, lee, team.ID)
	require.NoError(t, err)
	require.Equal(t, []primitive.ObjectID{kim.ID, lee.ID}, joined.MemberIDs)

	again, err := e.teams.JoinTeam(e.ctx, lee, team.ID)
	require.NoError(t, err)
	require.Len(t, again.MemberIDs, 2)

	_, err = e.teams.JoinTeam(e.ctx, lee, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamRanking(t *testing.T) {
	e := newTestEnv(t, time.Date(2024, time.March, 11, 8, 0, 0, 0, seoul(t)), nil)
	kim := e.member(t, "kim")
	lee := e.member(t, "lee")
	park := e.member(t, "park")

	team, err := e.teams.CreateTeam(e.ctx, kim, "crew")
	require.NoError(t, err)
	_, err = e.teams.JoinTeam(e.ctx, lee, team.ID)
	require.NoError(t, err)

	ex := e.exercise(t, lee.ID, "run")
	e.exerciseFor(t, lee.ID, ex.ID, 45*time.Minute)

	page, err := e.teams.GetRanking(e.ctx, kim, team.ID, 0, 20, time.Time{})
	require.NoError(t, err)
	require.Equal(t, []string{"lee", "kim"}, names(page.Entries))
	require.Equal(t, 2, page.MyRank)
	require.Zero(t, page.MyTotal)
	require.False(t, page.HasNext)

	_, err = e.teams.GetRanking(e.ctx, park, team.ID, 0, 20, time.Time{})
	require.ErrorIs(t, err, ErrRankNotFound)

	_, err = e.teams.GetRanking(e.ctx, kim, team.ID, 0, 0, time.Time{})
	require.ErrorIs(t, err, ErrInvalidPage)

	_, err = e.teams.GetRanking(e.ctx, kim, primitive.NewObjectID(), 0, 20, time.Time{})
	require.ErrorIs(t, err, ErrTeamNotFound)
}
