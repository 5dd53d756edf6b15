package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chatdesk/internal/apperr"
	"chatdesk/internal/logger"
	"chatdesk/internal/models"
	"chatdesk/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = apperr.Auth("invalid credentials")
	errAccountInactive    = apperr.Auth("account inactive")
	errUserNotFound       = apperr.NotFound("user not found")
)

var validate = validator.New()

// dummyHash is compared against when the username does not exist, so an
// unknown user costs the same bcrypt round as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, err := utils.HashPassword("chatdesk-dummy-password")
	if err != nil {
		panic(err)
	}
	return h
})

// CredentialStore owns user accounts and password verification.
type CredentialStore struct {
	users UserRepo
	tx    Transactor
	now   Clock
}

func NewCredentialStore(users UserRepo, tx Transactor, now Clock) *CredentialStore {
	return &CredentialStore{users: users, tx: tx, now: now}
}

func (s *CredentialStore) Register(ctx context.Context, reg models.Registration) (uuid.UUID, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)

	if err := validate.Struct(reg); err != nil {
		return uuid.Nil, validationError(err)
	}
	if strings.TrimSpace(reg.Password) == "" {
		return uuid.Nil, apperr.Validation("password is required")
	}

	hashed, err := hashPassword(reg.Password)
	if err != nil {
		return uuid.Nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hashed,
		Phone:        trimmedOrNil(reg.Phone),
		DisplayName:  trimmedOrNil(reg.DisplayName),
		Status:       models.StatusActive,
		CreatedAt:    s.now(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		usernameTaken, emailTaken, err := s.users.ExistsByUsernameOrEmail(ctx, user.Username, user.Email)
		if err != nil {
			return err
		}
		if usernameTaken {
			return apperr.Conflict("username already taken")
		}
		if emailTaken {
			return apperr.Conflict("email already registered")
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return uuid.Nil, err
	}

	logger.WithCtx(ctx).Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email_masked", utils.MaskEmail(user.Email)),
	)
	return user.ID, nil
}

// VerifyCredentials never tells an unknown username apart from a wrong
// password. "account inactive" is only reported once the password matched.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, username, password string) (uuid.UUID, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		utils.CheckPasswordHash(password, dummyHash())
		return uuid.Nil, errInvalidCredentials
	}
	if err != nil {
		return uuid.Nil, err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return uuid.Nil, errInvalidCredentials
	}
	if !user.IsActive() {
		return uuid.Nil, errAccountInactive
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		logger.WithCtx(ctx).Warn("Failed to record last login",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return user.ID, nil
}

func (s *CredentialStore) Lookup(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errUserNotFound
	}
	return user, err
}

func (s *CredentialStore) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) error {
	if upd.Empty() {
		return apperr.Validation("no profile fields supplied")
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		upd.Email = &email
	}
	if err := validate.Struct(upd); err != nil {
		return validationError(err)
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if upd.Email != nil {
			owner, err := s.users.GetByEmail(ctx, *upd.Email)
			switch {
			case err == nil && owner.ID != id:
				return apperr.Conflict("email already registered")
			case err != nil && !errors.Is(err, apperr.ErrNotFound):
				return err
			}
		}

		n, err := s.users.UpdateProfile(ctx, id, upd)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Validation("no changes made to profile")
		}
		return nil
	})
}

func (s *CredentialStore) ChangePassword(ctx context.Context, id uuid.UUID, current, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperr.Validation("new password is required")
	}

	user, err := s.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(current, user.PasswordHash) {
		return apperr.Auth("current password is incorrect")
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hashed)
}

func hashPassword(password string) (string, error) {
	hashed, err := utils.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Validation("password is too long")
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return hashed, nil
}

// validationError turns the first failed struct tag into a message such as
// "username is required" or "email is malformed".
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid input")
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return apperr.Validation(field + " is required")
	}
	return apperr.Validation(field + " is malformed")
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
