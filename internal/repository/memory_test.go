package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatdesk/internal/apperr"
	"chatdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemUser(username, email string) *models.User {
	return &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Status:       models.StatusActive,
		CreatedAt:    time.Now(),
	}
}

func TestMemoryUsers_UniqueKeys(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()

	require.NoError(t, users.Create(ctx, newMemUser("alice", "a@x.io")))

	err := users.Create(ctx, newMemUser("alice", "other@x.io"))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	err = users.Create(ctx, newMemUser("bob", "A@X.IO"))
	assert.ErrorIs(t, err, apperr.ErrConflict, "email uniqueness ignores case")

	u, e, err := users.ExistsByUsernameOrEmail(ctx, "bob", "a@X.io")
	require.NoError(t, err)
	assert.False(t, u)
	assert.True(t, e)
}

func TestMemoryUsers_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()
	alice := newMemUser("alice", "a@x.io")
	require.NoError(t, users.Create(ctx, alice))

	got, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	got.PasswordHash = "tampered"

	again, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", again.PasswordHash)
}

func TestMemoryStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := store.Users()
	sessions := store.Sessions()

	alice := newMemUser("alice", "a@x.io")
	require.NoError(t, users.Create(ctx, alice))

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, users.UpdatePassword(ctx, alice.ID, "changed"))
		require.NoError(t, sessions.Create(ctx, &models.Session{ID: uuid.New(), UserID: alice.ID, Token: "t", ExpiresAt: time.Now().Add(time.Hour)}))
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = sessions.GetByToken(ctx, "t")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemorySessions_DeleteExpiredInclusive(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemoryStore().Sessions()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	uid := uuid.New()

	require.NoError(t, sessions.Create(ctx, &models.Session{ID: uuid.New(), UserID: uid, Token: "past", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, sessions.Create(ctx, &models.Session{ID: uuid.New(), UserID: uid, Token: "edge", ExpiresAt: now}))
	require.NoError(t, sessions.Create(ctx, &models.Session{ID: uuid.New(), UserID: uid, Token: "live", ExpiresAt: now.Add(time.Second)}))

	n, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = sessions.GetByToken(ctx, "live")
	assert.NoError(t, err)

	n, err = sessions.DeleteByUser(ctx, uid)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryPasswordResets_MarkConsumedOnce(t *testing.T) {
	ctx := context.Background()
	resets := NewMemoryStore().PasswordResets()
	p := &models.PasswordReset{ID: uuid.New(), UserID: uuid.New(), Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, resets.Create(ctx, p))

	n, err := resets.MarkConsumed(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = resets.MarkConsumed(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
