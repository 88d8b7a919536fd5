package usecases_port

import (
	"context"
	"search-analytics-service/internal/core/domain"

	"github.com/google/uuid"
)

type CheckAvailabilityUseCase interface {
	Execute(ctx context.Context, unitID uuid.UUID, stay domain.DateRange) (bool, error)
}
