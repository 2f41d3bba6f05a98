package vehicles

import "time"

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Vehicle is a truck referenced by trips.
type Vehicle struct {
	ID           int64     `json:"id"`
	LicensePlate string    `json:"license_plate"`
	Description  string    `json:"description,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Form struct {
	LicensePlate string `json:"license_plate" validate:"required,max=20"`
	Description  string `json:"description" validate:"omitempty,max=200"`
}
