package customers

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var ErrCustomerNotFound = fmt.Errorf("%w: customer", httpx.ErrNotFound)
