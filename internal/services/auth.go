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

// ResetRequestedMessage is returned for every reset request unless unknown
// emails are configured to be revealed.
const ResetRequestedMessage = "if the email is registered, a reset link has been sent"

// Result is the uniform outcome of every AuthService call. Kind is for the
// transport layer and is not serialised.
type Result struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Token     string              `json:"token,omitempty"`
	UserID    *uuid.UUID          `json:"userId,omitempty"`
	ExpiresAt *time.Time          `json:"expiresAt,omitempty"`
	Profile   *models.UserProfile `json:"profile,omitempty"`
	Kind      apperr.Kind         `json:"-"`
}

type AuthOptions struct {
	RevealUnknownEmail bool
}

// AuthService is the single entry point used by the HTTP handlers. It turns
// every failure into a Result and never exposes password hashes.
type AuthService struct {
	creds    *CredentialStore
	sessions *SessionLedger
	resets   *ResetLedger
	mailer   ResetMailer
	opts     AuthOptions
}

func NewAuthService(creds *CredentialStore, sessions *SessionLedger, resets *ResetLedger, mailer ResetMailer, opts AuthOptions) *AuthService {
	return &AuthService{creds: creds, sessions: sessions, resets: resets, mailer: mailer, opts: opts}
}

func (s *AuthService) Register(ctx context.Context, reg models.Registration) Result {
	id, err := s.creds.Register(ctx, reg)
	if err != nil {
		return s.fail(ctx, "register", err)
	}
	return s.ok("register", Result{Message: "registration successful", UserID: &id})
}

func (s *AuthService) Login(ctx context.Context, username, password string) Result {
	userID, err := s.creds.VerifyCredentials(ctx, username, password)
	if err != nil {
		return s.fail(ctx, "login", err)
	}

	token, expiresAt, err := s.sessions.CreateSession(ctx, userID)
	if err != nil {
		return s.fail(ctx, "login", err)
	}

	logger.WithCtx(ctx).Info("Login succeeded", zap.String("user_id", userID.String()))
	return s.ok("login", Result{
		Message:   "login successful",
		Token:     token,
		UserID:    &userID,
		ExpiresAt: &expiresAt,
	})
}

func (s *AuthService) Logout(ctx context.Context, token string) Result {
	if token == "" {
		return s.fail(ctx, "logout", apperr.Auth("missing session token"))
	}
	if err := s.sessions.DestroySession(ctx, token); err != nil {
		return s.fail(ctx, "logout", err)
	}
	return s.ok("logout", Result{Message: "logged out"})
}

func (s *AuthService) ValidateSession(ctx context.Context, token string) Result {
	userID, err := s.sessions.ValidateSession(ctx, token)
	if err != nil {
		return s.fail(ctx, "validate_session", err)
	}
	return s.ok("validate_session", Result{Message: "session valid", UserID: &userID})
}

// RequestPasswordReset issues a reset token and hands it to the mailer. The
// token itself never appears in the Result.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) Result {
	log := logger.WithCtx(ctx)

	ticket, err := s.resets.RequestReset(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) && !s.opts.RevealUnknownEmail {
		log.Info("Reset requested for unknown email", zap.String("email_masked", utils.MaskEmail(email)))
		return s.ok("request_reset", Result{Message: ResetRequestedMessage})
	}
	if err != nil {
		return s.fail(ctx, "request_reset", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, email, ticket.Username, ticket.Token); err != nil {
			log.Error("Failed to queue reset email",
				zap.String("user_id", ticket.UserID.String()), zap.Error(err))
		}
	}

	log.Info("Password reset requested",
		zap.String("user_id", ticket.UserID.String()),
		zap.Time("expires_at", ticket.ExpiresAt),
	)
	return s.ok("request_reset", Result{Message: ResetRequestedMessage})
}

func (s *AuthService) ValidateResetToken(ctx context.Context, token string) Result {
	req, err := s.resets.ValidateToken(ctx, token)
	if err != nil {
		return s.fail(ctx, "validate_reset", err)
	}
	return s.ok("validate_reset", Result{Message: "reset token valid", ExpiresAt: &req.ExpiresAt})
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) Result {
	userID, err := s.resets.ResetPassword(ctx, token, newPassword)
	if err != nil {
		return s.fail(ctx, "reset_password", err)
	}
	logger.WithCtx(ctx).Info("Password reset completed", zap.String("user_id", userID.String()))
	return s.ok("reset_password", Result{Message: "password has been reset"})
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) Result {
	if err := s.creds.ChangePassword(ctx, userID, current, newPassword); err != nil {
		return s.fail(ctx, "change_password", err)
	}
	return s.ok("change_password", Result{Message: "password changed"})
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) Result {
	if err := s.creds.UpdateProfile(ctx, userID, upd); err != nil {
		return s.fail(ctx, "update_profile", err)
	}
	user, err := s.creds.Lookup(ctx, userID)
	if err != nil {
		return s.fail(ctx, "update_profile", err)
	}
	return s.ok("update_profile", Result{Message: "profile updated", Profile: user.Profile()})
}

// Profile only serves active accounts.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) Result {
	user, err := s.creds.Lookup(ctx, userID)
	if err != nil {
		return s.fail(ctx, "profile", err)
	}
	if !user.IsActive() {
		return s.fail(ctx, "profile", errUserNotFound)
	}
	return s.ok("profile", Result{Message: "ok", Profile: user.Profile()})
}

// Sweep removes expired sessions and reset requests.
func (s *AuthService) Sweep(ctx context.Context) (sessions, resets int64, err error) {
	sessions, err = s.sessions.PurgeExpired(ctx)
	if err != nil {
		return 0, 0, err
	}
	resets, err = s.resets.PurgeExpired(ctx)
	if err != nil {
		return sessions, 0, err
	}
	return sessions, resets, nil
}

func (s *AuthService) ok(op string, r Result) Result {
	r.Success = true
	metrics.RecordAuth(op, metrics.OutcomeSuccess)
	return r
}

func (s *AuthService) fail(ctx context.Context, op string, err error) Result {
	kind := apperr.KindOf(err)
	metrics.RecordAuth(op, string(kind))

	log := logger.WithCtx(ctx).With(zap.String("operation", op))
	if kind == apperr.KindInternal {
		log.Error("Auth operation failed", zap.Error(err))
	} else {
		log.Info("Auth operation rejected", zap.String("kind", string(kind)), zap.String("reason", apperr.MessageOf(err)))
	}

	return Result{Success: false, Message: apperr.MessageOf(err), Kind: kind}
}
