package services

import (
	"context"
	"strings"
	"testing"

	"chatdesk/internal/apperr"
	"chatdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_UniqueOnce(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()

	id, err := f.creds.Register(ctx, models.Registration{Username: "alice", Password: "pw1", Email: "a@x.io"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	_, err = f.creds.Register(ctx, models.Registration{Username: "alice", Password: "pw2", Email: "other@x.io"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "username already taken", apperr.MessageOf(err))

	_, err = f.creds.Register(ctx, models.Registration{Username: "alicia", Password: "pw2", Email: "A@X.IO"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "email already registered", apperr.MessageOf(err))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		reg  models.Registration
		msg  string
	}{
		{"empty username", models.Registration{Username: "  ", Password: "pw", Email: "a@x.io"}, "username is required"},
		{"empty password", models.Registration{Username: "a", Password: "", Email: "a@x.io"}, "password is required"},
		{"empty email", models.Registration{Username: "a", Password: "pw", Email: " "}, "email is required"},
		{"malformed email", models.Registration{Username: "a", Password: "pw", Email: "not-an-email"}, "email is malformed"},
		{"whitespace password", models.Registration{Username: "a", Password: "   ", Email: "a@x.io"}, "password is required"},
		{"first failing field wins", models.Registration{Username: "", Password: "", Email: "bad"}, "username is required"},
		{"password too long for bcrypt", models.Registration{Username: "a", Password: strings.Repeat("x", 80), Email: "a@x.io"}, "password is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, AuthOptions{})
			_, err := f.creds.Register(context.Background(), tt.reg)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.msg, apperr.MessageOf(err))
		})
	}
}

func TestRegister_StoresHashAndOptionalFields(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	name := "  Alice  "
	blank := "   "

	id, err := f.creds.Register(ctx, models.Registration{
		Username:    "alice",
		Password:    "pw1",
		Email:       " a@x.io ",
		DisplayName: &name,
		Phone:       &blank,
	})
	require.NoError(t, err)

	u, err := f.creds.Lookup(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", u.PasswordHash)
	assert.Equal(t, "a@x.io", u.Email)
	require.NotNil(t, u.DisplayName)
	assert.Equal(t, "Alice", *u.DisplayName)
	assert.Nil(t, u.Phone)
	assert.Equal(t, models.StatusActive, u.Status)
	assert.Equal(t, f.clock.Now(), u.CreatedAt)
}

func TestVerifyCredentials_NoEnumeration(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	f.register(t, "alice", "pw1", "a@x.io")

	_, unknownErr := f.creds.VerifyCredentials(ctx, "nobody", "pw1")
	_, wrongErr := f.creds.VerifyCredentials(ctx, "alice", "wrong")

	require.ErrorIs(t, unknownErr, apperr.ErrAuth)
	require.ErrorIs(t, wrongErr, apperr.ErrAuth)
	assert.Equal(t, apperr.MessageOf(unknownErr), apperr.MessageOf(wrongErr))
	assert.Equal(t, "invalid credentials", apperr.MessageOf(unknownErr))
}

func TestVerifyCredentials_InactiveOnlyAfterPasswordCheck(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	f.register(t, "alice", "pw1", "a@x.io")

	u, err := f.store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.store.Users().SetStatus(ctx, u.ID, models.StatusInactive))

	_, err = f.creds.VerifyCredentials(ctx, "alice", "wrong")
	assert.Equal(t, "invalid credentials", apperr.MessageOf(err))

	_, err = f.creds.VerifyCredentials(ctx, "alice", "pw1")
	assert.Equal(t, "account inactive", apperr.MessageOf(err))
}

func TestVerifyCredentials_RecordsLastLogin(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	f.register(t, "alice", "pw1", "a@x.io")

	id, err := f.creds.VerifyCredentials(ctx, "alice", "pw1")
	require.NoError(t, err)

	u, err := f.creds.Lookup(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, f.clock.Now(), *u.LastLoginAt)
}

func TestLookup_NotFound(t *testing.T) {
	f := newFixture(t, AuthOptions{})

	_, err := f.creds.Lookup(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChangePassword_RoundTrip(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	f.register(t, "alice", "pw1", "a@x.io")
	id, err := f.creds.VerifyCredentials(ctx, "alice", "pw1")
	require.NoError(t, err)

	err = f.creds.ChangePassword(ctx, id, "wrong", "pw2")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	err = f.creds.ChangePassword(ctx, id, "pw1", "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.creds.ChangePassword(ctx, id, "pw1", "pw2"))

	_, err = f.creds.VerifyCredentials(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	got, err := f.creds.VerifyCredentials(ctx, "alice", "pw2")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, AuthOptions{})
	ctx := context.Background()
	f.register(t, "alice", "pw1", "a@x.io")
	f.register(t, "bob", "pw1", "b@x.io")
	alice, err := f.store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)

	err = f.creds.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	bad := "nope"
	err = f.creds.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	taken := "B@x.io"
	err = f.creds.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	same := "A@x.io"
	name := "Alice"
	require.NoError(t, f.creds.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: &same, DisplayName: &name}))

	u, err := f.creds.Lookup(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "A@x.io", u.Email)
	assert.Equal(t, "Alice", *u.DisplayName)

	err = f.creds.UpdateProfile(ctx, uuid.New(), models.ProfileUpdate{DisplayName: &name})
	require.ErrorIs(t, err, apperr.ErrValidation, "zero rows touched")
	assert.Equal(t, "no changes made to profile", apperr.MessageOf(err))

	blank := "  "
	err = f.creds.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: &blank})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "email is malformed", apperr.MessageOf(err))
}
