// internal/domain/fleet/snapshot.go
package fleet

import (
	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/vehicle"
)

// Snapshot is everything a user currently tracks.
type Snapshot struct {
	Devices  []device.Device   `json:"devices"`
	Vehicles []vehicle.Vehicle `json:"vehicles"`
}
