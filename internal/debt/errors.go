package debt

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrPaymentNotFound = fmt.Errorf("%w: payment", httpx.ErrNotFound)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be greater than zero", httpx.ErrValidation)
	ErrInvalidYear     = fmt.Errorf("%w: year is out of range", httpx.ErrValidation)
	ErrInvalidCustomer = fmt.Errorf("%w: customer id must be positive", httpx.ErrValidation)
)
