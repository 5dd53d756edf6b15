package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidAt reports whether the session is still live at t.
func (s *Session) ValidAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}
