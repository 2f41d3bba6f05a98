package wage

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrAdjustmentNotFound = fmt.Errorf("%w: salary adjustment", httpx.ErrNotFound)
	ErrInvalidStaff       = fmt.Errorf("%w: staff id must be positive", httpx.ErrValidation)
)
