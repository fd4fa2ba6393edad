package placement

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores placement rows as handed to it. Encryption happens above
// this layer: the repository never sees plaintext PHI.
type Repository interface {
	Create(ctx context.Context, p *PlacementInfo) error
	GetByID(ctx context.Context, id uuid.UUID) (*PlacementInfo, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*PlacementInfo, int, error)
	Update(ctx context.Context, p *PlacementInfo) error
	Delete(ctx context.Context, id uuid.UUID) error
}
