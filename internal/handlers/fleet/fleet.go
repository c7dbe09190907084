// internal/handlers/fleet/fleet.go
package fleet

import (
	"context"
	"net/http"

	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/fleet"
	"fleetcare-service/internal/domain/vehicle"
	"fleetcare-service/internal/middleware"
	"fleetcare-service/internal/pkg/response"
	service "fleetcare-service/internal/service/fleet"

	"github.com/gin-gonic/gin"
)

// Service is implemented by fleet.FleetService.
type Service interface {
	FetchDevicesAndVehicles(ctx context.Context, ownerID string) (*fleet.Snapshot, error)

	ListVehicles(ctx context.Context, ownerID string) ([]vehicle.Vehicle, error)
	GetVehicle(ctx context.Context, ownerID, id string) (*vehicle.Vehicle, error)
	AddVehicle(ctx context.Context, ownerID string, req *vehicle.VehicleRequest) (*vehicle.Vehicle, error)
	UpdateVehicle(ctx context.Context, ownerID, id string, req *vehicle.VehicleRequest) (*vehicle.Vehicle, error)
	DeleteVehicle(ctx context.Context, ownerID, id string) error

	ListDevices(ctx context.Context, ownerID string) ([]device.Device, error)
	GetDevice(ctx context.Context, ownerID, id string) (*device.Device, error)
	AddDevice(ctx context.Context, ownerID string, req *device.DeviceRequest) (*device.Device, error)
	UpdateDevice(ctx context.Context, ownerID, id string, req *device.DeviceRequest) (*device.Device, error)
	DeleteDevice(ctx context.Context, ownerID, id string) error
}

var _ Service = (*service.FleetService)(nil)

type FleetHandler struct {
	fleetService Service
}

func NewFleetHandler(fleetService Service) *FleetHandler {
	return &FleetHandler{fleetService: fleetService}
}

// GetFleet returns every device and vehicle of the caller
func (h *FleetHandler) GetFleet(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	snapshot, err := h.fleetService.FetchDevicesAndVehicles(c.Request.Context(), ownerID)
	if err != nil {
		response.FromError(c, "failed to load fleet", err)
		return
	}

	response.Success(c, http.StatusOK, "fleet retrieved", snapshot)
}

// ========== Vehicles ==========

func (h *FleetHandler) ListVehicles(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	vehicles, err := h.fleetService.ListVehicles(c.Request.Context(), ownerID)
	if err != nil {
		response.FromError(c, "failed to list vehicles", err)
		return
	}

	response.Success(c, http.StatusOK, "vehicles retrieved", vehicles)
}

func (h *FleetHandler) GetVehicle(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	v, err := h.fleetService.GetVehicle(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.FromError(c, "vehicle not found", err)
		return
	}

	response.Success(c, http.StatusOK, "vehicle retrieved", v)
}

func (h *FleetHandler) CreateVehicle(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	var req vehicle.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	v, err := h.fleetService.AddVehicle(c.Request.Context(), ownerID, &req)
	if err != nil {
		response.FromError(c, "failed to create vehicle", err)
		return
	}

	response.Success(c, http.StatusCreated, "vehicle created", v)
}

func (h *FleetHandler) UpdateVehicle(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	var req vehicle.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	v, err := h.fleetService.UpdateVehicle(c.Request.Context(), ownerID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to update vehicle", err)
		return
	}

	response.Success(c, http.StatusOK, "vehicle updated", v)
}

func (h *FleetHandler) DeleteVehicle(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	if err := h.fleetService.DeleteVehicle(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		response.FromError(c, "failed to delete vehicle", err)
		return
	}

	response.Success(c, http.StatusOK, "vehicle deleted", nil)
}

// ========== Devices ==========

func (h *FleetHandler) ListDevices(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	devices, err := h.fleetService.ListDevices(c.Request.Context(), ownerID)
	if err != nil {
		response.FromError(c, "failed to list devices", err)
		return
	}

	response.Success(c, http.StatusOK, "devices retrieved", devices)
}

func (h *FleetHandler) GetDevice(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	d, err := h.fleetService.GetDevice(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.FromError(c, "device not found", err)
		return
	}

	response.Success(c, http.StatusOK, "device retrieved", d)
}

func (h *FleetHandler) CreateDevice(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	var req device.DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	d, err := h.fleetService.AddDevice(c.Request.Context(), ownerID, &req)
	if err != nil {
		response.FromError(c, "failed to create device", err)
		return
	}

	response.Success(c, http.StatusCreated, "device created", d)
}

func (h *FleetHandler) UpdateDevice(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	var req device.DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	d, err := h.fleetService.UpdateDevice(c.Request.Context(), ownerID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to update device", err)
		return
	}

	response.Success(c, http.StatusOK, "device updated", d)
}

func (h *FleetHandler) DeleteDevice(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	if err := h.fleetService.DeleteDevice(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		response.FromError(c, "failed to delete device", err)
		return
	}

	response.Success(c, http.StatusOK, "device deleted", nil)
}
