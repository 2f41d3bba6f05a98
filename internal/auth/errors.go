package auth

import (
	"errors"
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var errSessionMissing = errors.New("auth: session middleware not installed")

// ErrEmailTaken is returned when registering an address that already has an account.
var ErrEmailTaken = fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
