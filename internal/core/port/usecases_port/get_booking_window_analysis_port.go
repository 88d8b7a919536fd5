package usecases_port

import (
	"context"
	"search-analytics-service/internal/core/domain"

	"github.com/google/uuid"
)

type GetBookingWindowAnalysisUseCase interface {
	Execute(ctx context.Context, propertyID uuid.UUID, checkInRange *domain.DateRange) (*domain.BookingWindowStat, error)
}
