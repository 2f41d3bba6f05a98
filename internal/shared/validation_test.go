package shared_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := shared.ValidateStruct(loginInput{Email: "nope"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "email must be a valid email")
	require.Contains(t, err.Error(), "password is required")

	require.NoError(t, shared.ValidateStruct(loginInput{Email: "a@b.vn", Password: "x"}))
}
