// internal/domain/notification/entity.go
package notification

import (
	"time"

	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/vehicle"
)

type Category string

const (
	CategoryInsurance     Category = "insurance"
	CategoryInspection    Category = "inspection"
	CategoryService       Category = "service"
	CategoryDeviceService Category = "device-service"
)

type ItemType string

const (
	ItemVehicle ItemType = "vehicle"
	ItemDevice  ItemType = "device"
)

// Notification is a derived alert. It is never stored; every generation pass
// rebuilds the full set.
type Notification struct {
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	ItemType    ItemType  `json:"item_type"`
	ItemID      string    `json:"item_id"`
	Message     string    `json:"message"`
	Date        time.Time `json:"date"`
	Expired     bool      `json:"expired"`
	VehicleName string    `json:"vehicle_name,omitempty"`
	DeviceName  string    `json:"device_name,omitempty"`
}

// MakeID is stable for an (item, category) pair.
func MakeID(category Category, itemID string) string {
	return string(category) + "-" + itemID
}

// GenerateRequest runs the generator over caller-supplied records.
type GenerateRequest struct {
	Vehicles []vehicle.Vehicle `json:"vehicles"`
	Devices  []device.Device   `json:"devices"`
	Now      *time.Time        `json:"now"`
}

type FeedResponse struct {
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
	ExpiredCount  int            `json:"expired_count"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// NewFeedResponse summarises a notification list.
func NewFeedResponse(items []Notification, generatedAt time.Time) *FeedResponse {
	expired := 0
	for _, n := range items {
		if n.Expired {
			expired++
		}
	}
	if items == nil {
		items = []Notification{}
	}
	return &FeedResponse{
		Notifications: items,
		Count:         len(items),
		ExpiredCount:  expired,
		GeneratedAt:   generatedAt,
	}
}
