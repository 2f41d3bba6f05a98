package staff

import "time"

// Status is the soft-delete flag of a staff member.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Staff is a driver or assistant. ShortName is the natural key used by
// balances and expenses.
type Staff struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	ShortName string    `json:"short_name"`
	Phone     string    `json:"phone,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the staff member can be assigned to trips.
func (s Staff) Active() bool {
	return s.Status != StatusInactive
}

// Form carries create and update input.
type Form struct {
	FullName  string `json:"full_name" validate:"required,max=120"`
	ShortName string `json:"short_name" validate:"required,max=40"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
}
