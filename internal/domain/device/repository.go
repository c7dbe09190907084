// internal/domain/device/repository.go
package device

import "context"

type Repository interface {
	Create(ctx context.Context, d *Device) error
	FindByID(ctx context.Context, ownerID, id string) (*Device, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Device, error)
	Update(ctx context.Context, d *Device) error
	Delete(ctx context.Context, ownerID, id string) error
}
