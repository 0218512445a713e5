package service

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"alcyxob/exercise-tracker/internal/timewindow"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coder/quartz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTeamNotFound   = errors.New("team not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidTeam    = errors.New("team name is required")
)

type TeamService interface {
	CreateTeam(ctx context.Context, leader domain.MemberContext, name string) (*domain.Team, error)
	JoinTeam(ctx context.Context, member domain.MemberContext, teamID primitive.ObjectID) (*domain.Team, error)
	// GetRanking returns one page of the team's leaderboard for the logical day named
	// by date. A zero date means today.
	GetRanking(ctx context.Context, caller domain.MemberContext, teamID primitive.ObjectID, page, size int, date time.Time) (*domain.RankingPage, error)
}

type teamService struct {
	teamRepo   repository.TeamRepository
	memberRepo repository.MemberRepository
	ranking    *RankingEngine
	calc       timewindow.Calculator
	clock      quartz.Clock
}

// NewTeamService creates a new instance of teamService.
func NewTeamService(teamRepo repository.TeamRepository, memberRepo repository.MemberRepository, ranking *RankingEngine, calc timewindow.Calculator, clock quartz.Clock) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		ranking:    ranking,
		calc:       calc,
		clock:      clock,
	}
}

// CreateTeam creates a team led, and initially joined, by leader.
func (s *teamService) CreateTeam(ctx context.Context, leader domain.MemberContext, name string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTeam
	}
	team := &domain.Team{
		Name:      name,
		LeaderID:  leader.ID,
		MemberIDs: []primitive.ObjectID{leader.ID},
	}
	id, err := s.teamRepo.Create(ctx, team)
	if err != nil {
		return nil, err
	}
	team.ID = id
	return team, nil
}

// JoinTeam adds the member to the team. Joining twice is a no-op.
func (s *teamService) JoinTeam(ctx context.Context, member domain.MemberContext, teamID primitive.ObjectID) (*domain.Team, error) {
	if _, err := s.memberRepo.GetByID(ctx, member.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if err := s.teamRepo.AddMember(ctx, teamID, member.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return s.team(ctx, teamID)
}

func (s *teamService) GetRanking(ctx context.Context, caller domain.MemberContext, teamID primitive.ObjectID, page, size int, date time.Time) (*domain.RankingPage, error) {
	if page < 0 || size <= 0 {
		return nil, ErrInvalidPage
	}
	team, err := s.team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.calc.LogicalDate(s.clock.Now())
	}

	entries, err := s.ranking.Rank(ctx, team.MemberIDs, date)
	if err != nil {
		return nil, err
	}
	return Paginate(entries, caller.Name, page, size)
}

func (s *teamService) team(ctx context.Context, teamID primitive.ObjectID) (*domain.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}
