package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesOnKind(t *testing.T) {
	err := Auth("invalid credentials")

	assert.True(t, errors.Is(err, ErrAuth))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, Auth("invalid credentials")))
	assert.False(t, errors.Is(err, Auth("account inactive")))
}

func TestIs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NotFound("user not found"))
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	viaOops := oops.With("operation", "select user").Wrap(ErrConflict)
	assert.True(t, errors.Is(viaOops, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(viaOops))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("x"), KindValidation},
		{"conflict", Conflict("x"), KindConflict},
		{"auth", Auth("x"), KindAuth},
		{"not found", NotFound("x"), KindNotFound},
		{"internal", Internal(errors.New("db down")), KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf_HidesInternalCause(t *testing.T) {
	err := Internal(errors.New("password authentication failed for user postgres"))

	assert.Equal(t, "internal error", MessageOf(err))
	assert.Equal(t, "internal error", MessageOf(errors.New("raw")))
	assert.Equal(t, "email already registered", MessageOf(Conflict("email already registered")))
	assert.Equal(t, "not found", MessageOf(oops.With("operation", "x").Wrap(ErrNotFound)))
	assert.ErrorContains(t, err, "password authentication failed")
}
