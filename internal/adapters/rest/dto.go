package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"search-analytics-service/internal/core/domain"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names in errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs the struct tags and converts the first failure into a domain.ValidationError.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			return domain.NewValidationError(field, "failed on the '%s=%s' rule", fe.Tag(), fe.Param())
		}
		return domain.NewValidationError(field, "failed on the '%s' rule", fe.Tag())
	}
	return domain.NewValidationError("", "%s", err.Error())
}

// --- search ---

type GeoRegionDTO struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusKm  float64 `json:"radius_km" validate:"gt=0"`
}

// FilterDTO - value members are decoded according to data_type.
type FilterDTO struct {
	PropertyTypeID string            `json:"property_type_id" validate:"omitempty,uuid"`
	FieldID        string            `json:"field_id" validate:"required,uuid"`
	Operator       string            `json:"operator" validate:"required,oneof=eq neq gt gte lt lte range contains"`
	DataType       string            `json:"data_type" validate:"required,oneof=number boolean string enum"`
	Value          json.RawMessage   `json:"value"`
	UpperValue     json.RawMessage   `json:"upper_value,omitempty"`
	Values         []json.RawMessage `json:"values,omitempty"`
}

type SearchPropertiesRequest struct {
	Text           string        `json:"text" validate:"max=200"`
	Region         *GeoRegionDTO `json:"region"`
	CheckIn        string        `json:"check_in" validate:"omitempty,datetime=2006-01-02"`
	CheckOut       string        `json:"check_out" validate:"omitempty,datetime=2006-01-02"`
	PropertyTypeID string        `json:"property_type_id" validate:"omitempty,uuid"`
	AmenityIDs     []string      `json:"amenity_ids" validate:"omitempty,dive,uuid"`
	ServiceIDs     []string      `json:"service_ids" validate:"omitempty,dive,uuid"`
	Filters        []FilterDTO   `json:"filters" validate:"omitempty,max=50,dive"`
	Page           int           `json:"page" validate:"gte=0"`
	PageSize       int           `json:"page_size" validate:"gte=0"`
}

func (req SearchPropertiesRequest) toQuery() (domain.SearchQuery, error) {
	query := domain.SearchQuery{
		Text:     req.Text,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Region != nil {
		query.Region = &domain.GeoRegion{
			Center:   domain.Coordinate{Latitude: req.Region.Latitude, Longitude: req.Region.Longitude},
			RadiusKm: req.Region.RadiusKm,
		}
	}

	dates, err := optionalRange("check_in", req.CheckIn, req.CheckOut)
	if err != nil {
		return query, err
	}
	query.Dates = dates

	if req.PropertyTypeID != "" {
		id := uuid.MustParse(req.PropertyTypeID)
		query.PropertyTypeID = &id
	}
	query.AmenityIDs = mustParseIDs(req.AmenityIDs)
	query.ServiceIDs = mustParseIDs(req.ServiceIDs)

	for i, f := range req.Filters {
		filter, err := f.toFilter()
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("filters[%d].%s", i, ve.Field)
			}
			return query, err
		}
		query.Filters = append(query.Filters, filter)
	}
	return query, nil
}

func (f FilterDTO) toFilter() (domain.SearchFilter, error) {
	dataType := domain.FieldType(f.DataType)
	filter := domain.SearchFilter{
		FieldID:  uuid.MustParse(f.FieldID),
		Operator: domain.FilterOperator(f.Operator),
		DataType: dataType,
	}
	if f.PropertyTypeID != "" {
		id := uuid.MustParse(f.PropertyTypeID)
		filter.PropertyTypeID = &id
	}

	if len(f.Values) > 0 {
		for _, raw := range f.Values {
			v, err := decodeValue(dataType, raw)
			if err != nil {
				return filter, domain.NewValidationError("values", "%s", err.Error())
			}
			filter.Values = append(filter.Values, v)
		}
		return filter, nil
	}

	value, err := decodeValue(dataType, f.Value)
	if err != nil {
		return filter, domain.NewValidationError("value", "%s", err.Error())
	}
	filter.Value = value

	if len(f.UpperValue) > 0 {
		upper, err := decodeValue(dataType, f.UpperValue)
		if err != nil {
			return filter, domain.NewValidationError("upper_value", "%s", err.Error())
		}
		filter.UpperValue = &upper
	}
	return filter, nil
}

// decodeValue reads a bare JSON value as the declared type.
func decodeValue(t domain.FieldType, raw json.RawMessage) (domain.FieldValue, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.FieldValue{}, fmt.Errorf("value is required")
	}
	switch t {
	case domain.FieldTypeNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return domain.FieldValue{}, fmt.Errorf("expected a number")
		}
		return domain.NumberValue(n), nil
	case domain.FieldTypeBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return domain.FieldValue{}, fmt.Errorf("expected a boolean")
		}
		return domain.BoolValue(b), nil
	case domain.FieldTypeString, domain.FieldTypeEnum:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.FieldValue{}, fmt.Errorf("expected a string")
		}
		if t == domain.FieldTypeEnum {
			return domain.EnumValue(s), nil
		}
		return domain.StringValue(s), nil
	}
	return domain.FieldValue{}, fmt.Errorf("unsupported data type %q", t)
}

type PropertyResultResponse struct {
	PropertyID      string   `json:"property_id"`
	PropertyTypeID  string   `json:"property_type_id"`
	Title           string   `json:"title"`
	Address         string   `json:"address"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	Geohash         string   `json:"geohash"`
	Rating          float64  `json:"rating"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	AvailableUnitID *string  `json:"available_unit_id,omitempty"`
}

// PaginatedPropertiesResponse - a page of search results.
type PaginatedPropertiesResponse struct {
	Data       []PropertyResultResponse `json:"data"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	PerPage    int                      `json:"perPage"`
	TotalPages int                      `json:"totalPages"`
}

func toPaginatedPropertiesResponse(page *domain.PaginatedResult[domain.PropertyResult]) PaginatedPropertiesResponse {
	data := make([]PropertyResultResponse, len(page.Items))
	for i, item := range page.Items {
		data[i] = PropertyResultResponse{
			PropertyID:     item.PropertyID.String(),
			PropertyTypeID: item.PropertyTypeID.String(),
			Title:          item.Title,
			Address:        item.Address,
			Latitude:       item.Location.Latitude,
			Longitude:      item.Location.Longitude,
			Geohash:        item.Geohash,
			Rating:         item.Rating,
			DistanceKm:     item.DistanceKm,
		}
		if item.AvailableUnitID != nil {
			id := item.AvailableUnitID.String()
			data[i].AvailableUnitID = &id
		}
	}
	return PaginatedPropertiesResponse{
		Data:       data,
		Total:      page.TotalCount,
		Page:       page.CurrentPage,
		PerPage:    page.ItemsPerPage,
		TotalPages: page.TotalPages,
	}
}

// --- bookings ---

type CreateBookingRequest struct {
	UnitID     string  `json:"unit_id" validate:"required,uuid"`
	GuestID    string  `json:"guest_id" validate:"required,uuid"`
	CheckIn    string  `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string  `json:"check_out" validate:"required,datetime=2006-01-02"`
	TotalPrice float64 `json:"total_price" validate:"gte=0"`
}

func (req CreateBookingRequest) toDomain() (domain.NewBookingRequest, error) {
	stay, err := domain.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return domain.NewBookingRequest{}, err
	}
	return domain.NewBookingRequest{
		UnitID:     uuid.MustParse(req.UnitID),
		GuestID:    uuid.MustParse(req.GuestID),
		Stay:       stay,
		TotalPrice: req.TotalPrice,
	}, nil
}

type BookingResponse struct {
	ID         string               `json:"id"`
	UnitID     string               `json:"unit_id"`
	PropertyID string               `json:"property_id"`
	GuestID    string               `json:"guest_id"`
	CheckIn    string               `json:"check_in"`
	CheckOut   string               `json:"check_out"`
	Nights     int                  `json:"nights"`
	Status     domain.BookingStatus `json:"status"`
	TotalPrice float64              `json:"total_price"`
	CreatedAt  string               `json:"created_at"`
	UpdatedAt  string               `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:         b.ID.String(),
		UnitID:     b.UnitID.String(),
		PropertyID: b.PropertyID.String(),
		GuestID:    b.GuestID.String(),
		CheckIn:    b.CheckIn.Format(domain.DateLayout),
		CheckOut:   b.CheckOut.Format(domain.DateLayout),
		Nights:     b.Nights(),
		Status:     b.Status,
		TotalPrice: b.TotalPrice,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  b.UpdatedAt.Format(time.RFC3339),
	}
}

type AvailabilityResponse struct {
	UnitID    string `json:"unit_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}

// --- analytics ---

type LeadTimeBucketResponse struct {
	Label   string `json:"label"`
	MinDays int    `json:"min_days"`
	MaxDays *int   `json:"max_days"`
	Count   int    `json:"count"`
}

type MonthCountResponse struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type AnomalyResponse struct {
	BookingID string `json:"booking_id"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
}

type BookingWindowResponse struct {
	PropertyID          string                   `json:"property_id"`
	From                *string                  `json:"from,omitempty"`
	To                  *string                  `json:"to,omitempty"`
	BookingsAnalyzed    int                      `json:"bookings_analyzed"`
	LeadTimeBuckets     []LeadTimeBucketResponse `json:"lead_time_buckets"`
	AverageLeadTimeDays float64                  `json:"average_lead_time_days"`
	AverageLengthOfStay float64                  `json:"average_length_of_stay"`
	CheckInsByMonth     []MonthCountResponse     `json:"check_ins_by_month"`
	HolidayCheckIns     int                      `json:"holiday_check_ins"`
	Anomalies           []AnomalyResponse        `json:"anomalies"`
	GeneratedAt         string                   `json:"generated_at"`
}

func toBookingWindowResponse(stat *domain.BookingWindowStat) BookingWindowResponse {
	resp := BookingWindowResponse{
		PropertyID:          stat.PropertyID.String(),
		BookingsAnalyzed:    stat.BookingsAnalyzed,
		LeadTimeBuckets:     make([]LeadTimeBucketResponse, len(stat.LeadTimeBuckets)),
		AverageLeadTimeDays: stat.AverageLeadTimeDays,
		AverageLengthOfStay: stat.AverageLengthOfStay,
		CheckInsByMonth:     make([]MonthCountResponse, len(stat.CheckInsByMonth)),
		HolidayCheckIns:     stat.HolidayCheckIns,
		Anomalies:           make([]AnomalyResponse, len(stat.Anomalies)),
		GeneratedAt:         stat.GeneratedAt.Format(time.RFC3339),
	}
	if stat.Range != nil {
		from, to := stat.Range.Start.Format(domain.DateLayout), stat.Range.End.Format(domain.DateLayout)
		resp.From, resp.To = &from, &to
	}
	for i, b := range stat.LeadTimeBuckets {
		resp.LeadTimeBuckets[i] = LeadTimeBucketResponse{Label: b.Label, MinDays: b.MinDays, MaxDays: b.MaxDays, Count: b.Count}
	}
	for i, m := range stat.CheckInsByMonth {
		resp.CheckInsByMonth[i] = MonthCountResponse{Month: m.Month.String(), Count: m.Count}
	}
	for i, a := range stat.Anomalies {
		resp.Anomalies[i] = AnomalyResponse{BookingID: a.BookingID.String(), Kind: string(a.Kind), Detail: a.Detail}
	}
	return resp
}

type PerformanceResponse struct {
	PropertyID         string  `json:"property_id"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	UnitCount          int     `json:"unit_count"`
	BookingsCount      int     `json:"bookings_count"`
	CancellationsCount int     `json:"cancellations_count"`
	CancellationRate   float64 `json:"cancellation_rate"`
	BookedNights       int     `json:"booked_nights"`
	AvailableNights    int     `json:"available_nights"`
	OccupancyRate      float64 `json:"occupancy_rate"`
	AverageRating      float64 `json:"average_rating"`
	ReviewCount        int     `json:"review_count"`
	RevenueTotal       float64 `json:"revenue_total"`
	AverageDailyRate   float64 `json:"average_daily_rate"`
	GeneratedAt        string  `json:"generated_at"`
}

func toPerformanceResponse(s *domain.PerformanceSummary) PerformanceResponse {
	return PerformanceResponse{
		PropertyID:         s.PropertyID.String(),
		StartDate:          s.Range.Start.Format(domain.DateLayout),
		EndDate:            s.Range.End.Format(domain.DateLayout),
		UnitCount:          s.UnitCount,
		BookingsCount:      s.BookingsCount,
		CancellationsCount: s.CancellationsCount,
		CancellationRate:   s.CancellationRate,
		BookedNights:       s.BookedNights,
		AvailableNights:    s.AvailableNights,
		OccupancyRate:      s.OccupancyRate,
		AverageRating:      s.AverageRating,
		ReviewCount:        s.ReviewCount,
		RevenueTotal:       s.RevenueTotal,
		AverageDailyRate:   s.AverageDailyRate,
		GeneratedAt:        s.GeneratedAt.Format(time.RFC3339),
	}
}

// --- helpers ---

// optionalRange parses a pair of dates where both or none must be present.
func optionalRange(field, start, end string) (*domain.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, domain.NewValidationError(field, "both dates of the range are required")
	}
	r, err := domain.ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// mustParseIDs is used after the validator checked the uuid format.
func mustParseIDs(raw []string) []uuid.UUID {
	if len(raw) == 0 {
		return nil
	}
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		out[i] = uuid.MustParse(s)
	}
	return out
}
