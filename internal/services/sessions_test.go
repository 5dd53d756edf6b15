package services

import (
	"context"
	"testing"
	"time"

	"chatdesk/internal/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_ValidUntilExpiry(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	userID := uuid.New()

	token, expiresAt, err := f.sessions.CreateSession(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(DefaultSessionTTL), expiresAt)

	got, err := f.sessions.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	f.clock.Advance(DefaultSessionTTL - time.Second)
	_, err = f.sessions.ValidateSession(ctx, token)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.sessions.ValidateSession(ctx, token)
	require.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, "invalid or expired session", apperr.MessageOf(err))
}

func TestSession_DestroyThenValidateFails(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()

	token, _, err := f.sessions.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, f.sessions.DestroySession(ctx, token))

	_, err = f.sessions.ValidateSession(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrAuth)

	err = f.sessions.DestroySession(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSession_ValidatePurgesExpired(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()

	stale, _, err := f.sessions.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	fresh, _, err := f.sessions.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	_, err = f.sessions.ValidateSession(ctx, fresh)
	require.NoError(t, err)

	_, err = f.store.Sessions().GetByToken(ctx, stale)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "expired row removed as a side effect")
}

func TestSession_TokensAreDistinct(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	userID := uuid.New()

	a, _, err := f.sessions.CreateSession(ctx, userID)
	require.NoError(t, err)
	b, _, err := f.sessions.CreateSession(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	n, err := f.sessions.DestroyUserSessions(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestSession_EmptyTokenIsInvalid(t *testing.T) {
	f := newFixture(t, AuthOptions{})

	_, err := f.sessions.ValidateSession(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestSession_PurgeExpired(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.sessions.CreateSession(ctx, uuid.New())
		require.NoError(t, err)
	}
	f.clock.Advance(DefaultSessionTTL)

	n, err := f.sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
