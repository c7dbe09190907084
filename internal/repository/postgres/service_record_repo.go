// internal/repository/postgres/service_record_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"fleetcare-service/internal/domain/servicerecord"
	xerrors "fleetcare-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type ServiceRecordRepository struct {
	db *pgxpool.Pool
}

func NewServiceRecordRepository(db *pgxpool.Pool) *ServiceRecordRepository {
	return &ServiceRecordRepository{db: db}
}

// Arrays are selected as text and parsed by pq.
const serviceRecordColumns = `
	id::text, owner_id::text, vehicle_id::text, device_id::text, title, description,
	service_date::text, cost::float8, mileage_km, images::text, image_paths::text,
	attachments, created_at, updated_at`

// Create inserts a service record with its stored file references
func (r *ServiceRecordRepository) Create(ctx context.Context, rec *servicerecord.ServiceRecord) error {
	attachmentsJSON, err := marshalAttachments(rec.Attachments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO service_records (
			id, owner_id, vehicle_id, device_id, title, description,
			service_date, cost, mileage_km, images, image_paths, attachments,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.VehicleID, rec.DeviceID, rec.Title, rec.Description,
		rec.ServiceDate, rec.Cost, rec.MileageKm,
		pq.Array(nonNil(rec.Images)), pq.Array(nonNil(rec.ImagePaths)), attachmentsJSON,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service record: %w", err)
	}
	return nil
}

// FindByID retrieves one of the owner's service records
func (r *ServiceRecordRepository) FindByID(ctx context.Context, ownerID, id string) (*servicerecord.ServiceRecord, error) {
	query := `SELECT ` + serviceRecordColumns + ` FROM service_records WHERE id = $1 AND owner_id = $2`

	rec, err := scanServiceRecord(r.db.QueryRow(ctx, query, id, ownerID))
	if isMissing(err) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find service record: %w", err)
	}
	return rec, nil
}

// ListByOwner returns the owner's records, newest service date first
func (r *ServiceRecordRepository) ListByOwner(ctx context.Context, ownerID string) ([]servicerecord.ServiceRecord, error) {
	query := `
		SELECT ` + serviceRecordColumns + `
		FROM service_records
		WHERE owner_id = $1
		ORDER BY service_date DESC, created_at DESC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service records: %w", err)
	}
	defer rows.Close()

	records := []servicerecord.ServiceRecord{}
	for rows.Next() {
		rec, err := scanServiceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Update replaces the record fields and file lists
func (r *ServiceRecordRepository) Update(ctx context.Context, rec *servicerecord.ServiceRecord) error {
	attachmentsJSON, err := marshalAttachments(rec.Attachments)
	if err != nil {
		return err
	}

	query := `
		UPDATE service_records
		SET vehicle_id = $3, device_id = $4, title = $5, description = $6,
		    service_date = $7, cost = $8, mileage_km = $9,
		    images = $10, image_paths = $11, attachments = $12, updated_at = $13
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.db.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.VehicleID, rec.DeviceID, rec.Title, rec.Description,
		rec.ServiceDate, rec.Cost, rec.MileageKm,
		pq.Array(nonNil(rec.Images)), pq.Array(nonNil(rec.ImagePaths)), attachmentsJSON,
		rec.UpdatedAt,
	)
	if isMissing(err) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update service record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete removes a service record row. Stored files are cleaned up by the caller.
func (r *ServiceRecordRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM service_records WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if isMissing(err) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete service record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func scanServiceRecord(row pgx.Row) (*servicerecord.ServiceRecord, error) {
	var (
		rec             servicerecord.ServiceRecord
		images, paths   []string
		attachmentsJSON []byte
	)
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.VehicleID, &rec.DeviceID, &rec.Title, &rec.Description,
		&rec.ServiceDate, &rec.Cost, &rec.MileageKm, pq.Array(&images), pq.Array(&paths),
		&attachmentsJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Images = nonNil(images)
	rec.ImagePaths = nonNil(paths)
	rec.Attachments = []servicerecord.Attachment{}
	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &rec.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
	}
	return &rec, nil
}

func marshalAttachments(a []servicerecord.Attachment) ([]byte, error) {
	if a == nil {
		a = []servicerecord.Attachment{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachments: %w", err)
	}
	return data, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
