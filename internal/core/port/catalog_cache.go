package port

import (
	"context"

	"github.com/google/uuid"
)

// CatalogCachePort drops cached catalog metadata after a change.
type CatalogCachePort interface {
	InvalidateProperty(ctx context.Context, propertyID uuid.UUID)
	InvalidateAll(ctx context.Context)
}
