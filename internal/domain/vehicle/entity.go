// internal/domain/vehicle/entity.go
package vehicle

import "time"

// Vehicle represents a tracked vehicle. Date fields hold YYYY-MM-DD strings;
// nil means the date is not set.
type Vehicle struct {
	ID              string    `json:"id" db:"id"`
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	Name            string    `json:"name" db:"name"`
	Make            *string   `json:"make,omitempty" db:"make"`
	Model           *string   `json:"model,omitempty" db:"model"`
	NumberPlate     *string   `json:"number_plate,omitempty" db:"number_plate"`
	InsuranceExpiry *string   `json:"insurance_expiry,omitempty" db:"insurance_expiry"`
	InspectionDue   *string   `json:"inspection_due,omitempty" db:"inspection_due"`
	NextServiceDate *string   `json:"next_service_date,omitempty" db:"next_service_date"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// VehicleRequest is the body for both creating and replacing a vehicle.
type VehicleRequest struct {
	Name            string  `json:"name" binding:"required,max=120"`
	Make            *string `json:"make" binding:"omitempty,max=80"`
	Model           *string `json:"model" binding:"omitempty,max=80"`
	NumberPlate     *string `json:"number_plate" binding:"omitempty,max=20"`
	InsuranceExpiry *string `json:"insurance_expiry"`
	InspectionDue   *string `json:"inspection_due"`
	NextServiceDate *string `json:"next_service_date"`
}
