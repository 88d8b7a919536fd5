package usecases_port

import (
	"context"

	"github.com/google/uuid"
)

// InvalidateCatalogUseCase reacts to a catalog change published by the property service.
type InvalidateCatalogUseCase interface {
	Execute(ctx context.Context, propertyID uuid.UUID) error
}
