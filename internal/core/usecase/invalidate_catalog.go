package usecase

import (
	"context"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
)

type InvalidateCatalogUseCase struct {
	cache port.CatalogCachePort
}

func NewInvalidateCatalogUseCase(cache port.CatalogCachePort) *InvalidateCatalogUseCase {
	return &InvalidateCatalogUseCase{cache: cache}
}

// Execute drops cached metadata of one property. uuid.Nil drops everything.
func (uc *InvalidateCatalogUseCase) Execute(ctx context.Context, propertyID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "InvalidateCatalog",
		"property_id": propertyID.String(),
	})

	if propertyID == uuid.Nil {
		uc.cache.InvalidateAll(ctx)
		ucLogger.Info("Whole catalog cache invalidated", nil)
		return nil
	}

	uc.cache.InvalidateProperty(ctx, propertyID)
	ucLogger.Info("Property cache invalidated", nil)
	return nil
}
