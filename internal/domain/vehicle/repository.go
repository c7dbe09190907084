// internal/domain/vehicle/repository.go
package vehicle

import "context"

type Repository interface {
	Create(ctx context.Context, v *Vehicle) error
	FindByID(ctx context.Context, ownerID, id string) (*Vehicle, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Vehicle, error)
	Update(ctx context.Context, v *Vehicle) error
	Delete(ctx context.Context, ownerID, id string) error
}
