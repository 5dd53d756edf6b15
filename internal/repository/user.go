package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatdesk/internal/apperr"
	"chatdesk/internal/db"
	"chatdesk/internal/logger"
	"chatdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const userColumns = `id, username, email, password_hash, phone, display_name, status, created_at, last_login_at`

type UserRepository struct {
	db db.DBTX
}

func NewUserRepository(conn db.DBTX) *UserRepository {
	return &UserRepository{db: conn}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	logger.Log.Debug("Creating user (repo)", zap.String("username", user.Username))
	query := `
	INSERT INTO users (id, username, email, password_hash, phone, display_name, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := db.Conn(ctx, r.db).Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.DisplayName,
		string(user.Status),
		user.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert user", err)
	}
	return nil
}

// ExistsByUsernameOrEmail checks both unique keys in one round trip.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	query := `
	SELECT
		EXISTS(SELECT 1 FROM users WHERE username = $1),
		EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($2))`
	err = db.Conn(ctx, r.db).QueryRow(ctx, query, username, email).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return false, false, wrapErr("check username/email", err)
	}
	return usernameTaken, emailTaken, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("get user by id", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("get user by username", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("get user by email", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return wrapErr("update last login", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return wrapErr("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("update password", pgx.ErrNoRows)
	}
	return nil
}

// UpdateProfile writes only the supplied fields and reports the rows touched.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, input models.ProfileUpdate) (int64, error) {
	query := `UPDATE users SET`
	var args []any
	argNum := 1

	if input.Email != nil {
		query += fmt.Sprintf(" email = $%d,", argNum)
		args = append(args, *input.Email)
		argNum++
	}
	if input.DisplayName != nil {
		query += fmt.Sprintf(" display_name = $%d,", argNum)
		args = append(args, *input.DisplayName)
		argNum++
	}
	if input.Phone != nil {
		query += fmt.Sprintf(" phone = $%d,", argNum)
		args = append(args, *input.Phone)
		argNum++
	}

	if len(args) == 0 {
		return 0, apperr.Validation("no fields to update")
	}

	query = strings.TrimSuffix(query, ",") + fmt.Sprintf(" WHERE id = $%d", argNum)
	args = append(args, id)

	tag, err := db.Conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		logger.Log.Error("Profile update failed (repo)", zap.Error(err), zap.String("user_id", id.String()))
		return 0, wrapErr("update profile", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u      models.User
		status string
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.DisplayName,
		&status,
		&u.CreatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	u.Status = models.UserStatus(status)
	return &u, nil
}
