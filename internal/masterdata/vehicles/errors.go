package vehicles

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrVehicleNotFound = fmt.Errorf("%w: vehicle", httpx.ErrNotFound)
	ErrPlateTaken      = fmt.Errorf("%w: license plate already registered", httpx.ErrDuplicate)
)
