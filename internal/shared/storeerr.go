package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/truckops/truckops/internal/platform/httpx"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// TranslateStoreError converts driver errors into the caller facing taxonomy.
// Constraint violations never leak the raw database message.
func TranslateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return httpx.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation, pgCheckViolation:
			return ErrRequiredFields
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: referenced record does not exist", httpx.ErrNotFound)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// UserSafeMessage returns a message that can be shown to API clients.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if httpx.IsClientError(err) {
		return err.Error()
	}
	return "internal error"
}
