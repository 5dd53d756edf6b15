package services

import (
	"context"
	"time"

	"chatdesk/internal/models"

	"github.com/google/uuid"
)

// Clock returns the current time. Services take one so expiry can be tested.
type Clock func() time.Time

// Transactor runs fn as one atomic unit; fn must use the ctx it is given.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepo interface {
	Create(ctx context.Context, user *models.User) error
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, input models.ProfileUpdate) (int64, error)
}

type SessionRepo interface {
	Create(ctx context.Context, s *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PasswordResetRepo interface {
	Create(ctx context.Context, p *models.PasswordReset) error
	GetByToken(ctx context.Context, token string) (*models.PasswordReset, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*models.PasswordReset, error)
	MarkConsumed(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
