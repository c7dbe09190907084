// internal/db/schema.go
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent and applied at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id                UUID PRIMARY KEY,
		owner_id          UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name              TEXT NOT NULL,
		make              TEXT,
		model             TEXT,
		number_plate      TEXT,
		insurance_expiry  DATE,
		inspection_due    DATE,
		next_service_date DATE,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_owner ON vehicles(owner_id)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id                    UUID PRIMARY KEY,
		owner_id              UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name                  TEXT NOT NULL,
		type                  TEXT,
		serial_number         TEXT,
		vehicle_id            UUID REFERENCES vehicles(id) ON DELETE SET NULL,
		last_service_date     DATE,
		next_service_date     DATE,
		service_interval_days INTEGER,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_owner ON devices(owner_id)`,
	`CREATE TABLE IF NOT EXISTS service_records (
		id           UUID PRIMARY KEY,
		owner_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		vehicle_id   UUID REFERENCES vehicles(id) ON DELETE SET NULL,
		device_id    UUID REFERENCES devices(id) ON DELETE SET NULL,
		title        TEXT NOT NULL,
		description  TEXT,
		service_date DATE NOT NULL,
		cost         NUMERIC(12, 2),
		mileage_km   BIGINT,
		images       TEXT[] NOT NULL DEFAULT '{}',
		image_paths  TEXT[] NOT NULL DEFAULT '{}',
		attachments  JSONB NOT NULL DEFAULT '[]',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_service_records_owner_date ON service_records(owner_id, service_date DESC)`,
}

// EnsureSchema creates the tables the service needs.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
