// internal/domain/servicerecord/repository.go
package servicerecord

import "context"

type Repository interface {
	Create(ctx context.Context, r *ServiceRecord) error
	FindByID(ctx context.Context, ownerID, id string) (*ServiceRecord, error)
	// ListByOwner returns records newest service date first.
	ListByOwner(ctx context.Context, ownerID string) ([]ServiceRecord, error)
	Update(ctx context.Context, r *ServiceRecord) error
	Delete(ctx context.Context, ownerID, id string) error
}
