package staff

import (
	"strings"

	"github.com/truckops/truckops/internal/shared"
)

func normalize(f Form) Form {
	f.FullName = strings.TrimSpace(f.FullName)
	f.ShortName = strings.TrimSpace(f.ShortName)
	f.Phone = strings.TrimSpace(f.Phone)
	return f
}

func (s *Service) validate(f Form) error {
	return shared.ValidateStruct(f)
}
