package trip

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrTripNotFound      = fmt.Errorf("%w: trip", httpx.ErrNotFound)
	ErrInvalidTransition = fmt.Errorf("%w: trip status does not allow this action", httpx.ErrConflict)
	ErrUnknownStatus     = fmt.Errorf("%w: unknown trip status", httpx.ErrValidation)
	ErrDriverRequired    = fmt.Errorf("%w: trip has no driver", httpx.ErrValidation)
	ErrInvalidDistance   = fmt.Errorf("%w: distance must be greater than zero", httpx.ErrValidation)
	ErrInvalidPrice      = fmt.Errorf("%w: price for customer must be greater than zero", httpx.ErrValidation)
	ErrInvalidStaffPrice = fmt.Errorf("%w: price for staff must be greater than zero", httpx.ErrValidation)
	ErrNegativeExpense   = fmt.Errorf("%w: expense categories cannot be negative", httpx.ErrValidation)
	ErrInactiveReference = fmt.Errorf("%w: referenced record is inactive", httpx.ErrValidation)
	ErrSameStaff         = fmt.Errorf("%w: assistant cannot be the driver", httpx.ErrValidation)
)
