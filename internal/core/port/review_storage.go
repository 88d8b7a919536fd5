package port

import (
	"context"
	"search-analytics-service/internal/core/domain"

	"github.com/google/uuid"
)

type ReviewStoragePort interface {
	GetReviewsByProperty(ctx context.Context, propertyID uuid.UUID, createdRange domain.DateRange) ([]domain.Review, error)
}
