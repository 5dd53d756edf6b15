package services

import (
	"context"
	"errors"
	"time"

	"chatdesk/internal/apperr"
	"chatdesk/internal/logger"
	"chatdesk/internal/metrics"
	"chatdesk/internal/models"
	"chatdesk/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultSessionTTL = 24 * time.Hour

var errInvalidSession = apperr.Auth("invalid or expired session")

// SessionLedger issues and checks opaque bearer tokens.
type SessionLedger struct {
	sessions SessionRepo
	now      Clock
	ttl      time.Duration
}

func NewSessionLedger(sessions SessionRepo, now Clock, ttl time.Duration) *SessionLedger {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionLedger{sessions: sessions, now: now, ttl: ttl}
}

func (l *SessionLedger) CreateSession(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	token, err := utils.GenerateToken()
	if err != nil {
		return "", time.Time{}, apperr.Internal(err)
	}

	now := l.now()
	sess := &models.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}
	if err := l.sessions.Create(ctx, sess); err != nil {
		return "", time.Time{}, err
	}
	return token, sess.ExpiresAt, nil
}

// ValidateSession purges every expired session before the lookup, so a
// validation call doubles as expiry maintenance.
func (l *SessionLedger) ValidateSession(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, errInvalidSession
	}

	now := l.now()
	if n, err := l.sessions.DeleteExpired(ctx, now); err != nil {
		logger.WithCtx(ctx).Warn("Expired session purge failed", zap.Error(err))
	} else {
		metrics.RecordPurged("sessions", n)
	}

	sess, err := l.sessions.GetByToken(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return uuid.Nil, errInvalidSession
	}
	if err != nil {
		return uuid.Nil, err
	}
	if !sess.ValidAt(now) {
		return uuid.Nil, errInvalidSession
	}
	return sess.UserID, nil
}

func (l *SessionLedger) DestroySession(ctx context.Context, token string) error {
	n, err := l.sessions.DeleteByToken(ctx, token)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("session not found")
	}
	return nil
}

func (l *SessionLedger) DestroyUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	return l.sessions.DeleteByUser(ctx, userID)
}

func (l *SessionLedger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := l.sessions.DeleteExpired(ctx, l.now())
	if err != nil {
		return 0, err
	}
	metrics.RecordPurged("sessions", n)
	return n, nil
}
