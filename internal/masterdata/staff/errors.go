package staff

import (
	"fmt"

	"github.com/truckops/truckops/internal/platform/httpx"
)

var (
	ErrStaffNotFound  = fmt.Errorf("%w: staff", httpx.ErrNotFound)
	ErrShortNameTaken = fmt.Errorf("%w: staff short name already exists", httpx.ErrDuplicate)
)
