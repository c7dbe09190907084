// internal/repository/postgres/device_repo.go
package postgres

import (
	"context"
	"fmt"

	"fleetcare-service/internal/domain/device"
	xerrors "fleetcare-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeviceRepository struct {
	db *pgxpool.Pool
}

func NewDeviceRepository(db *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `
	id::text, owner_id::text, name, type, serial_number, vehicle_id::text,
	last_service_date::text, next_service_date::text, service_interval_days,
	created_at, updated_at`

// Create inserts a device
func (r *DeviceRepository) Create(ctx context.Context, d *device.Device) error {
	query := `
		INSERT INTO devices (
			id, owner_id, name, type, serial_number, vehicle_id,
			last_service_date, next_service_date, service_interval_days,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.OwnerID, d.Name, d.Type, d.SerialNumber, d.VehicleID,
		d.LastServiceDate, d.NextServiceDate, d.ServiceIntervalDays,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

// FindByID retrieves one of the owner's devices
func (r *DeviceRepository) FindByID(ctx context.Context, ownerID, id string) (*device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1 AND owner_id = $2`

	d, err := scanDevice(r.db.QueryRow(ctx, query, id, ownerID))
	if isMissing(err) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find device: %w", err)
	}
	return d, nil
}

// ListByOwner returns the owner's devices by name
func (r *DeviceRepository) ListByOwner(ctx context.Context, ownerID string) ([]device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE owner_id = $1 ORDER BY name, id`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []device.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// Update replaces the editable fields of a device
func (r *DeviceRepository) Update(ctx context.Context, d *device.Device) error {
	query := `
		UPDATE devices
		SET name = $3, type = $4, serial_number = $5, vehicle_id = $6,
		    last_service_date = $7, next_service_date = $8,
		    service_interval_days = $9, updated_at = $10
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.db.Exec(ctx, query,
		d.ID, d.OwnerID, d.Name, d.Type, d.SerialNumber, d.VehicleID,
		d.LastServiceDate, d.NextServiceDate, d.ServiceIntervalDays, d.UpdatedAt,
	)
	if isMissing(err) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete removes a device
func (r *DeviceRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if isMissing(err) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func scanDevice(row pgx.Row) (*device.Device, error) {
	var d device.Device
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.Name, &d.Type, &d.SerialNumber, &d.VehicleID,
		&d.LastServiceDate, &d.NextServiceDate, &d.ServiceIntervalDays,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
