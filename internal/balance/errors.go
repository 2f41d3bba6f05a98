package balance

import (
	"errors"
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrBalanceNotFound = fmt.Errorf("%w: balance", httpx.ErrNotFound)
	ErrReasonRequired  = fmt.Errorf("%w: reason is required", httpx.ErrValidation)
	ErrStaffRequired   = fmt.Errorf("%w: staff short name is required", httpx.ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be non-zero", httpx.ErrValidation)
)

func isNotFound(err error) bool {
	return errors.Is(err, httpx.ErrNotFound)
}
