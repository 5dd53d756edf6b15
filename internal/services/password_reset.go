package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatdesk/internal/apperr"
	"chatdesk/internal/logger"
	"chatdesk/internal/metrics"
	"chatdesk/internal/models"
	"chatdesk/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultResetTTL = time.Hour

var errInvalidResetToken = apperr.Auth("invalid or expired reset token")

// ResetTicket is what the requester needs to deliver a reset link.
type ResetTicket struct {
	UserID    uuid.UUID
	Username  string
	Token     string
	ExpiresAt time.Time
}

// ResetLedger tracks one-time password reset requests.
type ResetLedger struct {
	users    UserRepo
	resets   PasswordResetRepo
	sessions SessionRepo
	tx       Transactor
	now      Clock
	ttl      time.Duration
}

func NewResetLedger(users UserRepo, resets PasswordResetRepo, sessions SessionRepo, tx Transactor, now Clock, ttl time.Duration) *ResetLedger {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ResetLedger{users: users, resets: resets, sessions: sessions, tx: tx, now: now, ttl: ttl}
}

func (l *ResetLedger) TTL() time.Duration { return l.ttl }

func (l *ResetLedger) RequestReset(ctx context.Context, email string) (*ResetTicket, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, apperr.Validation("email is malformed")
	}

	user, err := l.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("email not found")
	}
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := l.now()
	req := &models.PasswordReset{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}
	if err := l.resets.Create(ctx, req); err != nil {
		return nil, err
	}

	return &ResetTicket{UserID: user.ID, Username: user.Username, Token: token, ExpiresAt: req.ExpiresAt}, nil
}

// ValidateToken collapses missing, expired and consumed into one error.
func (l *ResetLedger) ValidateToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	if token == "" {
		return nil, errInvalidResetToken
	}

	req, err := l.resets.GetByToken(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errInvalidResetToken
	}
	if err != nil {
		return nil, err
	}
	if !req.UsableAt(l.now()) {
		return nil, errInvalidResetToken
	}
	return req, nil
}

// ResetPassword redeems token exactly once. The password write, the
// consumed flag and the revocation of the user's sessions commit together.
func (l *ResetLedger) ResetPassword(ctx context.Context, token, newPassword string) (uuid.UUID, error) {
	if strings.TrimSpace(newPassword) == "" {
		return uuid.Nil, apperr.Validation("new password is required")
	}
	if token == "" {
		return uuid.Nil, errInvalidResetToken
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return uuid.Nil, err
	}

	var userID uuid.UUID
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := l.resets.GetByTokenForUpdate(ctx, token)
		if errors.Is(err, apperr.ErrNotFound) {
			return errInvalidResetToken
		}
		if err != nil {
			return err
		}
		if !req.UsableAt(l.now()) {
			return errInvalidResetToken
		}

		if err := l.users.UpdatePassword(ctx, req.UserID, hashed); err != nil {
			return err
		}

		n, err := l.resets.MarkConsumed(ctx, req.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return errInvalidResetToken
		}

		revoked, err := l.sessions.DeleteByUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		logger.WithCtx(ctx).Info("Sessions revoked after password reset",
			zap.String("user_id", req.UserID.String()), zap.Int64("count", revoked))

		userID = req.UserID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

func (l *ResetLedger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := l.resets.DeleteExpired(ctx, l.now())
	if err != nil {
		return 0, err
	}
	metrics.RecordPurged("password_reset_requests", n)
	return n, nil
}
