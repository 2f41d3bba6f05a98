package expense

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrExpenseNotFound = fmt.Errorf("%w: expense", httpx.ErrNotFound)
	ErrInvalidAmount   = fmt.Errorf("%w: expense amount must be non-zero", httpx.ErrValidation)
	ErrInvalidTrip     = fmt.Errorf("%w: trip id must be positive", httpx.ErrValidation)
)
