package usecases_port

import (
	"context"
	"search-analytics-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

type CreateBookingUseCase interface {
	Execute(ctx context.Context, req domain.NewBookingRequest) (*domain.Booking, error)
}

type ConfirmBookingUseCase interface {
	Execute(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
}

type CancelBookingUseCase interface {
	Execute(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
}

type GetBookingByIDUseCase interface {
	Execute(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
}

// ExpirePendingBookingsUseCase cancels Pending bookings created before olderThan and returns how many.
type ExpirePendingBookingsUseCase interface {
	Execute(ctx context.Context, olderThan time.Time) (int, error)
}
