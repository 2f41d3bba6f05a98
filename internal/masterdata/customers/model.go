package customers

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Customer owns trips, debts and payments.
type Customer struct {
	ID                 int64     `json:"id"`
	CompanyName        string    `json:"company_name"`
	RepresentativeName string    `json:"representative_name"`
	Phone              string    `json:"phone,omitempty"`
	Address            string    `json:"address,omitempty"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DisplayName prefers the company name and falls back to the representative.
func (c Customer) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.RepresentativeName
}

type Form struct {
	CompanyName        string `json:"company_name" validate:"required_without=RepresentativeName,max=200"`
	RepresentativeName string `json:"representative_name" validate:"required_without=CompanyName,max=120"`
	Phone              string `json:"phone" validate:"omitempty,max=20"`
	Address            string `json:"address" validate:"omitempty,max=300"`
}
