// internal/service/fleet/fleet.go
package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/fleet"
	"fleetcare-service/internal/domain/vehicle"
	"fleetcare-service/internal/pkg/dates"
	xerrors "fleetcare-service/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FleetService struct {
	vehicleRepo vehicle.Repository
	deviceRepo  device.Repository
	logger      *zap.Logger
	now         func() time.Time
}

func NewFleetService(vehicleRepo vehicle.Repository, deviceRepo device.Repository, logger *zap.Logger) *FleetService {
	return &FleetService{
		vehicleRepo: vehicleRepo,
		deviceRepo:  deviceRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// FetchDevicesAndVehicles loads both collections for the owner in parallel.
func (s *FleetService) FetchDevicesAndVehicles(ctx context.Context, ownerID string) (*fleet.Snapshot, error) {
	var snap fleet.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vehicles, err := s.vehicleRepo.ListByOwner(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to list vehicles: %w", err)
		}
		snap.Vehicles = vehicles
		return nil
	})
	g.Go(func() error {
		devices, err := s.deviceRepo.ListByOwner(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		snap.Devices = devices
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if snap.Vehicles == nil {
		snap.Vehicles = []vehicle.Vehicle{}
	}
	if snap.Devices == nil {
		snap.Devices = []device.Device{}
	}
	return &snap, nil
}

// ========== Vehicles ==========

func (s *FleetService) ListVehicles(ctx context.Context, ownerID string) ([]vehicle.Vehicle, error) {
	vehicles, err := s.vehicleRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	if vehicles == nil {
		vehicles = []vehicle.Vehicle{}
	}
	return vehicles, nil
}

func (s *FleetService) GetVehicle(ctx context.Context, ownerID, id string) (*vehicle.Vehicle, error) {
	return s.vehicleRepo.FindByID(ctx, ownerID, id)
}

func (s *FleetService) AddVehicle(ctx context.Context, ownerID string, req *vehicle.VehicleRequest) (*vehicle.Vehicle, error) {
	v := &vehicle.Vehicle{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
	}
	if err := applyVehicleRequest(v, req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now

	if err := s.vehicleRepo.Create(ctx, v); err != nil {
		s.logger.Error("failed to create vehicle", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	s.logger.Info("vehicle created", zap.String("vehicle_id", v.ID), zap.String("owner_id", ownerID))
	return v, nil
}

func (s *FleetService) UpdateVehicle(ctx context.Context, ownerID, id string, req *vehicle.VehicleRequest) (*vehicle.Vehicle, error) {
	v, err := s.vehicleRepo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := applyVehicleRequest(v, req); err != nil {
		return nil, err
	}
	v.UpdatedAt = s.now().UTC()

	if err := s.vehicleRepo.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}

	return v, nil
}

// DeleteVehicle removes the vehicle. Devices mounted on it become unattached.
func (s *FleetService) DeleteVehicle(ctx context.Context, ownerID, id string) error {
	if err := s.vehicleRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("vehicle deleted", zap.String("vehicle_id", id), zap.String("owner_id", ownerID))
	return nil
}

// ========== Devices ==========

func (s *FleetService) ListDevices(ctx context.Context, ownerID string) ([]device.Device, error) {
	devices, err := s.deviceRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if devices == nil {
		devices = []device.Device{}
	}
	return devices, nil
}

func (s *FleetService) GetDevice(ctx context.Context, ownerID, id string) (*device.Device, error) {
	return s.deviceRepo.FindByID(ctx, ownerID, id)
}

// AddDevice creates a device from a partial description.
func (s *FleetService) AddDevice(ctx context.Context, ownerID string, req *device.DeviceRequest) (*device.Device, error) {
	d := &device.Device{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
	}
	if err := s.applyDeviceRequest(ctx, ownerID, d, req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	if err := s.deviceRepo.Create(ctx, d); err != nil {
		s.logger.Error("failed to create device", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	s.logger.Info("device created", zap.String("device_id", d.ID), zap.String("owner_id", ownerID))
	return d, nil
}

func (s *FleetService) UpdateDevice(ctx context.Context, ownerID, id string, req *device.DeviceRequest) (*device.Device, error) {
	d, err := s.deviceRepo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyDeviceRequest(ctx, ownerID, d, req); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.now().UTC()

	if err := s.deviceRepo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update device: %w", err)
	}

	return d, nil
}

func (s *FleetService) DeleteDevice(ctx context.Context, ownerID, id string) error {
	if err := s.deviceRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("device deleted", zap.String("device_id", id), zap.String("owner_id", ownerID))
	return nil
}

// applyVehicleRequest validates every date before touching v, so a rejected
// request leaves the stored values as they were.
func applyVehicleRequest(v *vehicle.Vehicle, req *vehicle.VehicleRequest) error {
	insurance, err := normalizeDate("insurance_expiry", req.InsuranceExpiry)
	if err != nil {
		return err
	}
	inspection, err := normalizeDate("inspection_due", req.InspectionDue)
	if err != nil {
		return err
	}
	nextService, err := normalizeDate("next_service_date", req.NextServiceDate)
	if err != nil {
		return err
	}

	v.Name = req.Name
	v.Make = emptyToNil(req.Make)
	v.Model = emptyToNil(req.Model)
	v.NumberPlate = emptyToNil(req.NumberPlate)
	v.InsuranceExpiry = insurance
	v.InspectionDue = inspection
	v.NextServiceDate = nextService
	return nil
}

func (s *FleetService) applyDeviceRequest(ctx context.Context, ownerID string, d *device.Device, req *device.DeviceRequest) error {
	last, err := normalizeDate("last_service_date", req.LastServiceDate)
	if err != nil {
		return err
	}
	next, err := normalizeDate("next_service_date", req.NextServiceDate)
	if err != nil {
		return err
	}

	vehicleID := emptyToNil(req.VehicleID)
	if vehicleID != nil {
		if _, err := s.vehicleRepo.FindByID(ctx, ownerID, *vehicleID); err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.Invalid("vehicle %s does not exist", *vehicleID)
			}
			return fmt.Errorf("failed to check vehicle: %w", err)
		}
	}

	if next == nil && last != nil && req.ServiceIntervalDays != nil {
		derived, err := dates.AddDays(*last, *req.ServiceIntervalDays)
		if err != nil {
			return xerrors.Invalid("last_service_date: %v", err)
		}
		next = &derived
	}

	d.Name = req.Name
	d.Type = emptyToNil(req.Type)
	d.SerialNumber = emptyToNil(req.SerialNumber)
	d.VehicleID = vehicleID
	d.LastServiceDate = last
	d.NextServiceDate = next
	d.ServiceIntervalDays = req.ServiceIntervalDays
	return nil
}

func normalizeDate(field string, value *string) (*string, error) {
	out, err := dates.Normalize(value)
	if err != nil {
		return nil, xerrors.Invalid("%s: %v", field, err)
	}
	return out, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
