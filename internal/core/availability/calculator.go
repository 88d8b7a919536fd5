// Package availability decides whether a unit is free for a stay.
//
// Stays are half-open ranges [check-in, check-out): the check-out day of one booking can be
// the check-in day of the next. Only Pending and Confirmed bookings occupy a unit.
package availability

import (
	"bytes"
	"context"
	"fmt"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Conflicts returns the blocking bookings that overlap the stay.
// A booking with id exclude is skipped, so a booking can be re-checked against the others.
func Conflicts(bookings []domain.Booking, stay domain.DateRange, exclude uuid.UUID) []domain.Booking {
	var conflicts []domain.Booking
	for _, b := range bookings {
		if b.ID == exclude && exclude != uuid.Nil {
			continue
		}
		if !b.Status.BlocksAvailability() {
			continue
		}
		if b.Stay().Overlaps(stay) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}

// IsFree reports whether none of the bookings blocks the stay.
func IsFree(bookings []domain.Booking, stay domain.DateRange) bool {
	return len(Conflicts(bookings, stay, uuid.Nil)) == 0
}

// Calculator loads bookings from storage and applies the conflict rule.
type Calculator struct {
	bookings port.BookingStoragePort
	timeout  time.Duration
}

func NewCalculator(bookings port.BookingStoragePort, timeout time.Duration) *Calculator {
	return &Calculator{bookings: bookings, timeout: timeout}
}

// IsAvailable performs a single storage call bounded by the calculator timeout.
// Storage errors are returned unchanged.
func (c *Calculator) IsAvailable(ctx context.Context, unitID uuid.UUID, stay domain.DateRange) (bool, error) {
	if err := stay.Validate(); err != nil {
		return false, err
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	bookings, err := c.bookings.GetBookingsByUnit(callCtx, unitID)
	if err != nil {
		return false, fmt.Errorf("load bookings of unit %s: %w", unitID, err)
	}
	return IsFree(bookings, stay), nil
}

// FirstAvailableUnit returns the earliest created unit (ties by id) that is free for the stay, or nil.
func (c *Calculator) FirstAvailableUnit(ctx context.Context, units []domain.Unit, stay domain.DateRange) (*domain.Unit, error) {
	ordered := make([]domain.Unit, 0, len(units))
	for _, u := range units {
		if u.IsActive() {
			ordered = append(ordered, u)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return bytes.Compare(ordered[i].ID[:], ordered[j].ID[:]) < 0
	})

	for i := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		free, err := c.IsAvailable(ctx, ordered[i].ID, stay)
		if err != nil {
			return nil, err
		}
		if free {
			return &ordered[i], nil
		}
	}
	return nil, nil
}

func (c *Calculator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
