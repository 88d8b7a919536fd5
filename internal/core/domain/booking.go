package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// BlocksAvailability - statuses that occupy the unit for conflict checks.
func (s BookingStatus) BlocksAvailability() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// EarnsRevenue - statuses counted in revenue and occupancy.
func (s BookingStatus) EarnsRevenue() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCompleted
}

// CanTransitionTo encodes the lifecycle: pending -> confirmed -> completed,
// pending|confirmed -> cancelled. Completed and cancelled are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted || next == BookingStatusCancelled
	}
	return false
}

type Booking struct {
	ID         uuid.UUID
	UnitID     uuid.UUID
	PropertyID uuid.UUID
	GuestID    uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Status     BookingStatus
	TotalPrice float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b *Booking) Stay() DateRange {
	return DateRange{Start: b.CheckIn, End: b.CheckOut}
}

func (b *Booking) Nights() int { return b.Stay().Nights() }

// NewBookingRequest - input of the create booking command.
type NewBookingRequest struct {
	UnitID     uuid.UUID
	GuestID    uuid.UUID
	Stay       DateRange
	TotalPrice float64
}
