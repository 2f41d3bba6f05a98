package shared

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrNotFound   = httpx.ErrNotFound
	ErrDuplicate  = httpx.ErrDuplicate
	ErrValidation = httpx.ErrValidation
	ErrInvalidID  = fmt.Errorf("%w: invalid ID", httpx.ErrValidation)
)
