package service

import (
	"alcyxob/exercise-tracker/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginAndParseToken(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, time.March, 11, 8, 0, 0, 0, time.UTC))
	auth := NewAuthService(memory.NewStore().Members(), "test-secret", time.Hour, clock)

	member, err := auth.Register(ctx, "kim", " Kim@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", member.Email)
	assert.Empty(t, member.PasswordHash)

	_, err = auth.Register(ctx, "other", "kim@example.com", "hunter22")
	require.ErrorIs(t, err, ErrMemberAlreadyExists)
	_, err = auth.Register(ctx, "kim", "second@example.com", "hunter22")
	require.ErrorIs(t, err, ErrMemberAlreadyExists)

	_, _, err = auth.Login(ctx, "kim@example.com", "wrong")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = auth.Login(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	token, loggedIn, err := auth.Login(ctx, "KIM@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, member.ID, loggedIn.ID)

	mc, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, member.ID, mc.ID)
	assert.Equal(t, "kim", mc.Name)

	_, err = auth.ParseToken(token + "x")
	require.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(2 * time.Hour)
	_, err = auth.ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	store := memory.NewStore()
	issuer := NewAuthService(store.Members(), "secret-a", time.Hour, clock)
	verifier := NewAuthService(store.Members(), "secret-b", time.Hour, clock)

	_, err := issuer.Register(ctx, "kim", "kim@example.com", "hunter22")
	require.NoError(t, err)
	token, _, err := issuer.Login(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
