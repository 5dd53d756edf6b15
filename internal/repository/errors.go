package repository

import (
	"errors"
	"strings"

	"chatdesk/internal/apperr"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// wrapErr maps driver errors onto apperr kinds and attaches the operation name.
func wrapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.With("operation", op).Wrap(apperr.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.
			With("operation", op).
			With("constraint", pgErr.ConstraintName).
			Wrap(apperr.Conflict(conflictMessage(pgErr.ConstraintName)))
	}

	return oops.With("operation", op).Wrap(err)
}

func conflictMessage(constraint string) string {
	switch {
	case strings.Contains(constraint, "username"):
		return "username already taken"
	case strings.Contains(constraint, "email"):
		return "email already registered"
	default:
		return "duplicate value"
	}
}
