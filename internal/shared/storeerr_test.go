package shared_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

func TestTranslateStoreError(t *testing.T) {
	notNull := &pgconn.PgError{Code: "23502", Message: `null value in column "start_point" violates not-null constraint`}
	err := shared.TranslateStoreError(fmt.Errorf("insert trip: %w", notNull))
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, "validation failed: required fields cannot be empty", err.Error())
	require.NotContains(t, err.Error(), "start_point")

	check := &pgconn.PgError{Code: "23514"}
	require.ErrorIs(t, shared.TranslateStoreError(check), shared.ErrRequiredFields)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "staff_short_name_key"}
	require.ErrorIs(t, shared.TranslateStoreError(unique), httpx.ErrDuplicate)
	require.True(t, shared.IsUniqueViolation(unique))

	require.ErrorIs(t, shared.TranslateStoreError(pgx.ErrNoRows), httpx.ErrNotFound)
	require.ErrorIs(t, shared.TranslateStoreError(&pgconn.PgError{Code: "23503"}), httpx.ErrNotFound)

	plain := errors.New("connection reset")
	require.Equal(t, plain, shared.TranslateStoreError(plain))
	require.NoError(t, shared.TranslateStoreError(nil))
}

func TestUserSafeMessage(t *testing.T) {
	require.Equal(t, "internal error", shared.UserSafeMessage(errors.New("dial tcp: refused")))
	require.Equal(t, "validation failed: required fields cannot be empty", shared.UserSafeMessage(shared.ErrRequiredFields))
	require.Empty(t, shared.UserSafeMessage(nil))
}
