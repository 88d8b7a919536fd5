package port

import (
	"context"
	"search-analytics-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

type BookingStoragePort interface {
	GetBookingsByUnit(ctx context.Context, unitID uuid.UUID) ([]domain.Booking, error)
	// GetBookingsByProperty returns bookings of all units of the property.
	// A nil checkInRange returns the full history.
	GetBookingsByProperty(ctx context.Context, propertyID uuid.UUID, checkInRange *domain.DateRange) ([]domain.Booking, error)
	GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)

	// CreateBooking is a conditional write: it must fail with domain.ErrBookingConflict
	// when a blocking booking of the same unit overlaps.
	CreateBooking(ctx context.Context, booking *domain.Booking) error
	// UpdateBookingStatus moves the booking from one status to another atomically.
	// When next blocks availability the overlap check is repeated inside the same write.
	UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from, next domain.BookingStatus) (*domain.Booking, error)
	GetStalePendingBookings(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error)
}
