package usecase

import (
	"context"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/availability"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
)

type CheckAvailabilityUseCase struct {
	properties   port.PropertyStoragePort
	availability *availability.Calculator
}

func NewCheckAvailabilityUseCase(properties port.PropertyStoragePort, calculator *availability.Calculator) *CheckAvailabilityUseCase {
	return &CheckAvailabilityUseCase{properties: properties, availability: calculator}
}

func (uc *CheckAvailabilityUseCase) Execute(ctx context.Context, unitID uuid.UUID, stay domain.DateRange) (bool, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":  "CheckAvailability",
		"unit_id":   unitID.String(),
		"check_in":  stay.Start.Format(domain.DateLayout),
		"check_out": stay.End.Format(domain.DateLayout),
	})

	ucLogger.Info("Use case started", nil)

	if err := stay.Validate(); err != nil {
		ucLogger.Warn("Invalid stay", port.Fields{"error": err.Error()})
		return false, err
	}

	unit, err := uc.properties.GetUnitByID(ctx, unitID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return false, err
	}
	if !unit.IsActive() {
		return false, domain.ErrUnitNotFound
	}

	free, err := uc.availability.IsAvailable(ctx, unitID, stay)
	if err != nil {
		ucLogger.Error("Availability check failed", err, nil)
		return false, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"available": free})
	return free, nil
}
