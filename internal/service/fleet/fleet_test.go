package fleet

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/vehicle"
	xerrors "fleetcare-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type memVehicles struct {
	mu    sync.Mutex
	items map[string]vehicle.Vehicle
	err   error
}

func newMemVehicles() *memVehicles {
	return &memVehicles{items: make(map[string]vehicle.Vehicle)}
}

func (m *memVehicles) Create(_ context.Context, v *vehicle.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[v.ID] = *v
	return nil
}

func (m *memVehicles) FindByID(_ context.Context, ownerID, id string) (*vehicle.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[id]
	if !ok || v.OwnerID != ownerID {
		return nil, xerrors.ErrNotFound
	}
	return &v, nil
}

func (m *memVehicles) ListByOwner(_ context.Context, ownerID string) ([]vehicle.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []vehicle.Vehicle
	for _, v := range m.items {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memVehicles) Update(_ context.Context, v *vehicle.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[v.ID] = *v
	return nil
}

func (m *memVehicles) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[id]
	if !ok || v.OwnerID != ownerID {
		return xerrors.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memDevices struct {
	mu    sync.Mutex
	items map[string]device.Device
}

func newMemDevices() *memDevices {
	return &memDevices{items: make(map[string]device.Device)}
}

func (m *memDevices) Create(_ context.Context, d *device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[d.ID] = *d
	return nil
}

func (m *memDevices) FindByID(_ context.Context, ownerID, id string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok || d.OwnerID != ownerID {
		return nil, xerrors.ErrNotFound
	}
	return &d, nil
}

func (m *memDevices) ListByOwner(_ context.Context, ownerID string) ([]device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []device.Device
	for _, d := range m.items {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDevices) Update(_ context.Context, d *device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[d.ID] = *d
	return nil
}

func (m *memDevices) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok || d.OwnerID != ownerID {
		return xerrors.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func newTestService() (*FleetService, *memVehicles, *memDevices) {
	vr, dr := newMemVehicles(), newMemDevices()
	return NewFleetService(vr, dr, zap.NewNop()), vr, dr
}

func TestAddVehicleNormalizesDates(t *testing.T) {
	s, vr, _ := newTestService()
	v, err := s.AddVehicle(context.Background(), "u1", &vehicle.VehicleRequest{
		Name:            "Van",
		InsuranceExpiry: strPtr("2024-07-01T10:00:00Z"),
		InspectionDue:   strPtr(""),
		Make:            strPtr(""),
	})
	if err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}
	if v.ID == "" || v.OwnerID != "u1" {
		t.Fatalf("unexpected vehicle %+v", v)
	}
	if v.InsuranceExpiry == nil || *v.InsuranceExpiry != "2024-07-01" {
		t.Fatalf("insurance_expiry = %v", v.InsuranceExpiry)
	}
	if v.InspectionDue != nil || v.Make != nil {
		t.Fatalf("blank fields should be nil: %+v", v)
	}
	if _, ok := vr.items[v.ID]; !ok {
		t.Fatalf("vehicle not stored")
	}
}

func TestUpdateVehicleInvalidDateKeepsStoredValue(t *testing.T) {
	s, vr, _ := newTestService()
	ctx := context.Background()
	v, err := s.AddVehicle(ctx, "u1", &vehicle.VehicleRequest{Name: "Van", InsuranceExpiry: strPtr("2024-07-01")})
	if err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}

	_, err = s.UpdateVehicle(ctx, "u1", v.ID, &vehicle.VehicleRequest{Name: "Renamed", InsuranceExpiry: strPtr("2024-13-45")})
	if !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	stored := vr.items[v.ID]
	if stored.Name != "Van" || *stored.InsuranceExpiry != "2024-07-01" {
		t.Fatalf("stored vehicle changed: %+v", stored)
	}
}

func TestVehicleOwnership(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()
	v, err := s.AddVehicle(ctx, "u1", &vehicle.VehicleRequest{Name: "Van"})
	if err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}

	if _, err := s.GetVehicle(ctx, "u2", v.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("other owner should not see vehicle, got %v", err)
	}
	if err := s.DeleteVehicle(ctx, "u2", v.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("other owner should not delete vehicle, got %v", err)
	}
	if err := s.DeleteVehicle(ctx, "u1", v.ID); err != nil {
		t.Fatalf("DeleteVehicle: %v", err)
	}
}

func TestAddDevice(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()
	v, err := s.AddVehicle(ctx, "u1", &vehicle.VehicleRequest{Name: "Van"})
	if err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}

	tests := []struct {
		name     string
		req      device.DeviceRequest
		wantNext *string
		wantErr  error
	}{
		{
			name:     "derives next service from interval",
			req:      device.DeviceRequest{Name: "Pump", LastServiceDate: strPtr("2024-01-31"), ServiceIntervalDays: intPtr(30)},
			wantNext: strPtr("2024-03-01"),
		},
		{
			name:     "explicit next service wins",
			req:      device.DeviceRequest{Name: "Pump", LastServiceDate: strPtr("2024-01-31"), NextServiceDate: strPtr("2024-02-05"), ServiceIntervalDays: intPtr(30)},
			wantNext: strPtr("2024-02-05"),
		},
		{
			name: "no interval leaves next empty",
			req:  device.DeviceRequest{Name: "Pump", LastServiceDate: strPtr("2024-01-31")},
		},
		{
			name:     "linked to own vehicle",
			req:      device.DeviceRequest{Name: "Tracker", VehicleID: strPtr(v.ID)},
			wantNext: nil,
		},
		{
			name:    "unknown vehicle rejected",
			req:     device.DeviceRequest{Name: "Tracker", VehicleID: strPtr("00000000-0000-0000-0000-000000000000")},
			wantErr: xerrors.ErrInvalidInput,
		},
		{
			name:    "malformed date rejected",
			req:     device.DeviceRequest{Name: "Pump", LastServiceDate: strPtr("yesterday")},
			wantErr: xerrors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := s.AddDevice(ctx, "u1", &tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddDevice: %v", err)
			}
			switch {
			case tt.wantNext == nil && d.NextServiceDate != nil:
				t.Fatalf("next_service_date = %s, want nil", *d.NextServiceDate)
			case tt.wantNext != nil && (d.NextServiceDate == nil || *d.NextServiceDate != *tt.wantNext):
				t.Fatalf("next_service_date = %v, want %s", d.NextServiceDate, *tt.wantNext)
			}
		})
	}
}

func TestDeviceCannotLinkOtherOwnersVehicle(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()
	v, err := s.AddVehicle(ctx, "u1", &vehicle.VehicleRequest{Name: "Van"})
	if err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}
	_, err = s.AddDevice(ctx, "u2", &device.DeviceRequest{Name: "Tracker", VehicleID: strPtr(v.ID)})
	if !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateDevice(t *testing.T) {
	s, _, dr := newTestService()
	ctx := context.Background()
	d, err := s.AddDevice(ctx, "u1", &device.DeviceRequest{Name: "Pump"})
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	updated, err := s.UpdateDevice(ctx, "u1", d.ID, &device.DeviceRequest{
		Name:                "Pump v2",
		LastServiceDate:     strPtr("2024-02-28"),
		ServiceIntervalDays: intPtr(2),
	})
	if err != nil {
		t.Fatalf("UpdateDevice: %v", err)
	}
	if updated.Name != "Pump v2" || *updated.NextServiceDate != "2024-03-01" {
		t.Fatalf("unexpected device %+v", updated)
	}
	if dr.items[d.ID].Name != "Pump v2" {
		t.Fatalf("update not stored")
	}

	if _, err := s.UpdateDevice(ctx, "u1", "missing", &device.DeviceRequest{Name: "x"}); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteDevice(ctx, "u1", d.ID); err != nil {
		t.Fatalf("DeleteDevice: %v", err)
	}
}

func TestFetchDevicesAndVehicles(t *testing.T) {
	s, vr, _ := newTestService()
	ctx := context.Background()

	snap, err := s.FetchDevicesAndVehicles(ctx, "u1")
	if err != nil {
		t.Fatalf("FetchDevicesAndVehicles: %v", err)
	}
	if snap.Vehicles == nil || snap.Devices == nil {
		t.Fatalf("empty collections should be non-nil")
	}

	if _, err := s.AddVehicle(ctx, "u1", &vehicle.VehicleRequest{Name: "Van"}); err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}
	if _, err := s.AddVehicle(ctx, "u2", &vehicle.VehicleRequest{Name: "Other"}); err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}
	if _, err := s.AddDevice(ctx, "u1", &device.DeviceRequest{Name: "Pump"}); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	snap, err = s.FetchDevicesAndVehicles(ctx, "u1")
	if err != nil {
		t.Fatalf("FetchDevicesAndVehicles: %v", err)
	}
	if len(snap.Vehicles) != 1 || len(snap.Devices) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	vr.err = errors.New("db down")
	if _, err := s.FetchDevicesAndVehicles(ctx, "u1"); err == nil {
		t.Fatalf("expected error")
	}
}
