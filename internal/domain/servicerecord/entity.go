// internal/domain/servicerecord/entity.go
package servicerecord

import (
	"io"
	"time"
)

// Attachment is a non-image file stored with a service record.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ServiceRecord is a service or repair event for a vehicle or device.
type ServiceRecord struct {
	ID          string       `json:"id" db:"id"`
	OwnerID     string       `json:"owner_id" db:"owner_id"`
	VehicleID   *string      `json:"vehicle_id,omitempty" db:"vehicle_id"`
	DeviceID    *string      `json:"device_id,omitempty" db:"device_id"`
	Title       string       `json:"title" db:"title"`
	Description *string      `json:"description,omitempty" db:"description"`
	ServiceDate string       `json:"service_date" db:"service_date"`
	Cost        *float64     `json:"cost,omitempty" db:"cost"`
	MileageKm   *int64       `json:"mileage_km,omitempty" db:"mileage_km"`
	Images      []string     `json:"images" db:"images"`
	ImagePaths  []string     `json:"-" db:"image_paths"`
	Attachments []Attachment `json:"attachments" db:"attachments"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// Request is the record data sent alongside the uploaded files.
type Request struct {
	VehicleID   *string  `json:"vehicle_id" binding:"omitempty,uuid"`
	DeviceID    *string  `json:"device_id" binding:"omitempty,uuid"`
	Title       string   `json:"title" binding:"required,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=4000"`
	ServiceDate string   `json:"service_date" binding:"required"`
	Cost        *float64 `json:"cost" binding:"omitempty,min=0"`
	MileageKm   *int64   `json:"mileage_km" binding:"omitempty,min=0"`
}

// FileUpload is one incoming file. Open is called once, from the upload
// goroutine that stores it.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}
