package models

import (
	"time"

	"github.com/google/uuid"
)

type PasswordReset struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// UsableAt reports whether the request can still be redeemed at t.
func (p *PasswordReset) UsableAt(t time.Time) bool {
	return !p.Consumed && t.Before(p.ExpiresAt)
}
