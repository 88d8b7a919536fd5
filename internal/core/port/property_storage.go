package port

import (
	"context"
	"search-analytics-service/internal/core/domain"

	"github.com/google/uuid"
)

// BoundingBox - latitude/longitude bounds. MinLongitude > MaxLongitude means
// the box wraps across the antimeridian.
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// PropertyStoragePort - read access to the catalog.
type PropertyStoragePort interface {
	GetActiveProperties(ctx context.Context) ([]domain.Property, error)
	GetPropertiesInBoundingBox(ctx context.Context, box BoundingBox) ([]domain.Property, error)
	GetPropertyByID(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error)
	GetUnitsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Unit, error)
	GetUnitByID(ctx context.Context, unitID uuid.UUID) (*domain.Unit, error)
}
