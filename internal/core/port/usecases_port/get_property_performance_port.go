package usecases_port

import (
	"context"
	"search-analytics-service/internal/core/domain"

	"github.com/google/uuid"
)

type GetPropertyPerformanceUseCase interface {
	Execute(ctx context.Context, propertyID uuid.UUID, period domain.DateRange) (*domain.PerformanceSummary, error)
}
