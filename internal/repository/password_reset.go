package repository

import (
	"context"
	"time"

	"chatdesk/internal/db"
	"chatdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const resetColumns = `id, user_id, token, expires_at, consumed, created_at`

type PasswordResetRepository struct {
	db db.DBTX
}

func NewPasswordResetRepository(conn db.DBTX) *PasswordResetRepository {
	return &PasswordResetRepository{db: conn}
}

func (r *PasswordResetRepository) Create(ctx context.Context, p *models.PasswordReset) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO password_reset_requests (id, user_id, token, expires_at, consumed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.UserID, p.Token, p.ExpiresAt, p.Consumed, p.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert reset request", err)
	}
	return nil
}

func (r *PasswordResetRepository) GetByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	row := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+resetColumns+` FROM password_reset_requests WHERE token = $1`, token)
	p, err := scanReset(row)
	if err != nil {
		return nil, wrapErr("get reset request", err)
	}
	return p, nil
}

// GetByTokenForUpdate locks the row until the surrounding transaction ends.
func (r *PasswordResetRepository) GetByTokenForUpdate(ctx context.Context, token string) (*models.PasswordReset, error) {
	row := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+resetColumns+` FROM password_reset_requests WHERE token = $1 FOR UPDATE`, token)
	p, err := scanReset(row)
	if err != nil {
		return nil, wrapErr("lock reset request", err)
	}
	return p, nil
}

// MarkConsumed flips consumed only while it is still false; zero rows means
// someone else redeemed the request first.
func (r *PasswordResetRepository) MarkConsumed(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE password_reset_requests SET consumed = true WHERE id = $1 AND consumed = false`, id)
	if err != nil {
		return 0, wrapErr("consume reset request", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM password_reset_requests WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, wrapErr("delete expired reset requests", err)
	}
	return tag.RowsAffected(), nil
}

func scanReset(row pgx.Row) (*models.PasswordReset, error) {
	var p models.PasswordReset
	if err := row.Scan(&p.ID, &p.UserID, &p.Token, &p.ExpiresAt, &p.Consumed, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
