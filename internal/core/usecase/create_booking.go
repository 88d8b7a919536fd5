package usecase

import (
	"context"
	"fmt"
	"math"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/availability"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

type CreateBookingUseCase struct {
	properties port.PropertyStoragePort
	bookings   port.BookingStoragePort
	locker     port.UnitLockerPort
	now        func() time.Time
}

func NewCreateBookingUseCase(properties port.PropertyStoragePort, bookings port.BookingStoragePort, locker port.UnitLockerPort) *CreateBookingUseCase {
	return &CreateBookingUseCase{properties: properties, bookings: bookings, locker: locker, now: time.Now}
}

func (uc *CreateBookingUseCase) Execute(ctx context.Context, req domain.NewBookingRequest) (*domain.Booking, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "CreateBooking",
		"unit_id":  req.UnitID.String(),
		"guest_id": req.GuestID.String(),
	})

	ucLogger.Info("Use case started", nil)

	if err := validateNewBooking(req); err != nil {
		ucLogger.Warn("Invalid booking request", port.Fields{"error": err.Error()})
		return nil, err
	}

	unit, err := uc.properties.GetUnitByID(ctx, req.UnitID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	if !unit.IsActive() {
		return nil, domain.ErrUnitNotFound
	}

	// --- Critical section: check and insert must not interleave for one unit
	unlock, err := uc.locker.Lock(ctx, req.UnitID)
	if err != nil {
		ucLogger.Error("Failed to acquire unit lock", err, nil)
		return nil, fmt.Errorf("lock unit %s: %w", req.UnitID, err)
	}
	defer unlock()

	existing, err := uc.bookings.GetBookingsByUnit(ctx, req.UnitID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, fmt.Errorf("load bookings of unit %s: %w", req.UnitID, err)
	}
	if conflicts := availability.Conflicts(existing, req.Stay, uuid.Nil); len(conflicts) > 0 {
		ucLogger.Info("Requested stay is not available", port.Fields{"conflicting_booking_id": conflicts[0].ID.String()})
		return nil, fmt.Errorf("%w: overlaps booking %s", domain.ErrBookingConflict, conflicts[0].ID)
	}

	now := uc.now().UTC()
	booking := &domain.Booking{
		ID:         uuid.New(),
		UnitID:     unit.ID,
		PropertyID: unit.PropertyID,
		GuestID:    req.GuestID,
		CheckIn:    req.Stay.Start,
		CheckOut:   req.Stay.End,
		Status:     domain.BookingStatusPending,
		TotalPrice: req.TotalPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// the storage repeats the overlap check inside the write
	if err := uc.bookings.CreateBooking(ctx, booking); err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"booking_id": booking.ID.String()})
	return booking, nil
}

func validateNewBooking(req domain.NewBookingRequest) error {
	if req.UnitID == uuid.Nil {
		return domain.NewValidationError("unit_id", "unit id is required")
	}
	if req.GuestID == uuid.Nil {
		return domain.NewValidationError("guest_id", "guest id is required")
	}
	if err := req.Stay.Validate(); err != nil {
		return err
	}
	if math.IsNaN(req.TotalPrice) || math.IsInf(req.TotalPrice, 0) || req.TotalPrice < 0 {
		return domain.NewValidationError("total_price", "total price must be a non-negative number")
	}
	return nil
}
