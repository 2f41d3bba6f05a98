package shared

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

// RequiredFieldsMessage is shown instead of raw constraint violations.
const RequiredFieldsMessage = "required fields cannot be empty"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	// ErrUnauthenticated is returned when an operation needs a signed-in user.
	ErrUnauthenticated = fmt.Errorf("%w: sign in required", httpx.ErrUnauthorized)
	// ErrRequiredFields replaces not-null and check constraint violations.
	ErrRequiredFields = fmt.Errorf("%w: %s", httpx.ErrValidation, RequiredFieldsMessage)
)
