package repository

import (
	"context"
	"time"

	"chatdesk/internal/db"
	"chatdesk/internal/models"

	"github.com/google/uuid"
)

type SessionRepository struct {
	db db.DBTX
}

func NewSessionRepository(conn db.DBTX) *SessionRepository {
	return &SessionRepository{db: conn}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.Token, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert session", err)
	}
	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions
		WHERE token = $1`, token,
	).Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, wrapErr("get session by token", err)
	}
	return &s, nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return 0, wrapErr("delete session", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, wrapErr("delete user sessions", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, wrapErr("delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}
