package domain

import (
	"time"

	"github.com/google/uuid"
)

type AnomalyKind string

const (
	AnomalyNegativeLeadTime AnomalyKind = "negative_lead_time"
	AnomalyUnknownTimezone  AnomalyKind = "unknown_timezone"
)

// DataAnomaly is a non-fatal inconsistency found while aggregating.
type DataAnomaly struct {
	BookingID uuid.UUID
	Kind      AnomalyKind
	Detail    string
}

// LeadTimeBucket counts bookings whose lead time falls in [MinDays, MaxDays].
// MaxDays == nil means open-ended.
type LeadTimeBucket struct {
	Label   string
	MinDays int
	MaxDays *int
	Count   int
}

type MonthCount struct {
	Month time.Month
	Count int
}

// BookingWindowStat - booking window analysis of one property. Built on demand.
type BookingWindowStat struct {
	PropertyID          uuid.UUID
	Range               *DateRange
	BookingsAnalyzed    int
	LeadTimeBuckets     []LeadTimeBucket
	AverageLeadTimeDays float64
	AverageLengthOfStay float64
	CheckInsByMonth     []MonthCount
	HolidayCheckIns     int
	Anomalies           []DataAnomaly
	GeneratedAt         time.Time
}

// PerformanceSummary - aggregate performance of one property over a date range.
type PerformanceSummary struct {
	PropertyID         uuid.UUID
	Range              DateRange
	UnitCount          int
	BookingsCount      int
	CancellationsCount int
	CancellationRate   float64
	BookedNights       int
	AvailableNights    int
	OccupancyRate      float64
	AverageRating      float64
	ReviewCount        int
	RevenueTotal       float64
	AverageDailyRate   float64
	GeneratedAt        time.Time
}
