// internal/domain/device/entity.go
package device

import "time"

// Device is auxiliary equipment, optionally mounted on a vehicle.
type Device struct {
	ID                  string    `json:"id" db:"id"`
	OwnerID             string    `json:"owner_id" db:"owner_id"`
	Name                string    `json:"name" db:"name"`
	Type                *string   `json:"type,omitempty" db:"type"`
	SerialNumber        *string   `json:"serial_number,omitempty" db:"serial_number"`
	VehicleID           *string   `json:"vehicle_id,omitempty" db:"vehicle_id"`
	LastServiceDate     *string   `json:"last_service_date,omitempty" db:"last_service_date"`
	NextServiceDate     *string   `json:"next_service_date,omitempty" db:"next_service_date"`
	ServiceIntervalDays *int      `json:"service_interval_days,omitempty" db:"service_interval_days"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceRequest carries a partial device for add and a full one for update.
type DeviceRequest struct {
	Name                string  `json:"name" binding:"required,max=120"`
	Type                *string `json:"type" binding:"omitempty,max=60"`
	SerialNumber        *string `json:"serial_number" binding:"omitempty,max=80"`
	VehicleID           *string `json:"vehicle_id" binding:"omitempty,uuid"`
	LastServiceDate     *string `json:"last_service_date"`
	NextServiceDate     *string `json:"next_service_date"`
	ServiceIntervalDays *int    `json:"service_interval_days" binding:"omitempty,min=1,max=3650"`
}
