// internal/repository/postgres/vehicle_repo.go
package postgres

import (
	"context"
	"fmt"

	"fleetcare-service/internal/domain/vehicle"
	xerrors "fleetcare-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VehicleRepository struct {
	db *pgxpool.Pool
}

func NewVehicleRepository(db *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `
	id::text, owner_id::text, name, make, model, number_plate,
	insurance_expiry::text, inspection_due::text, next_service_date::text,
	created_at, updated_at`

// Create inserts a vehicle
func (r *VehicleRepository) Create(ctx context.Context, v *vehicle.Vehicle) error {
	query := `
		INSERT INTO vehicles (
			id, owner_id, name, make, model, number_plate,
			insurance_expiry, inspection_due, next_service_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		v.ID, v.OwnerID, v.Name, v.Make, v.Model, v.NumberPlate,
		v.InsuranceExpiry, v.InspectionDue, v.NextServiceDate,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

// FindByID retrieves one of the owner's vehicles
func (r *VehicleRepository) FindByID(ctx context.Context, ownerID, id string) (*vehicle.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 AND owner_id = $2`

	v, err := scanVehicle(r.db.QueryRow(ctx, query, id, ownerID))
	if isMissing(err) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return v, nil
}

// ListByOwner returns the owner's vehicles by name
func (r *VehicleRepository) ListByOwner(ctx context.Context, ownerID string) ([]vehicle.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE owner_id = $1 ORDER BY name, id`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []vehicle.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

// Update replaces the editable fields of a vehicle
func (r *VehicleRepository) Update(ctx context.Context, v *vehicle.Vehicle) error {
	query := `
		UPDATE vehicles
		SET name = $3, make = $4, model = $5, number_plate = $6,
		    insurance_expiry = $7, inspection_due = $8, next_service_date = $9,
		    updated_at = $10
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.db.Exec(ctx, query,
		v.ID, v.OwnerID, v.Name, v.Make, v.Model, v.NumberPlate,
		v.InsuranceExpiry, v.InspectionDue, v.NextServiceDate, v.UpdatedAt,
	)
	if isMissing(err) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete removes a vehicle; linked devices are detached by the foreign key
func (r *VehicleRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if isMissing(err) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func scanVehicle(row pgx.Row) (*vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Name, &v.Make, &v.Model, &v.NumberPlate,
		&v.InsuranceExpiry, &v.InspectionDue, &v.NextServiceDate,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
