package domain

import (
	"math"

	"github.com/google/uuid"
)

type FilterOperator string

const (
	OperatorEquals         FilterOperator = "eq"
	OperatorNotEquals      FilterOperator = "neq"
	OperatorGreaterThan    FilterOperator = "gt"
	OperatorGreaterOrEqual FilterOperator = "gte"
	OperatorLessThan       FilterOperator = "lt"
	OperatorLessOrEqual    FilterOperator = "lte"
	OperatorRange          FilterOperator = "range"
	OperatorContains       FilterOperator = "contains"
)

// SearchFilter - one predicate over a dynamic field.
// DataType is declared by the filter configuration and selects the comparison strategy.
type SearchFilter struct {
	PropertyTypeID *uuid.UUID
	FieldID        uuid.UUID
	Operator       FilterOperator
	DataType       FieldType
	Value          FieldValue
	UpperValue     *FieldValue  // only for OperatorRange
	Values         []FieldValue // only for OperatorContains over enums
}

// GeoRegion - circular search area.
type GeoRegion struct {
	Center   Coordinate
	RadiusKm float64
}

func (g GeoRegion) Validate() error {
	if !g.Center.Valid() {
		return NewValidationError("region.center", "latitude must be in [-90,90] and longitude in [-180,180]")
	}
	if math.IsNaN(g.RadiusKm) || math.IsInf(g.RadiusKm, 0) || g.RadiusKm <= 0 {
		return NewValidationError("region.radius_km", "radius must be a positive number")
	}
	return nil
}

// SearchQuery - the search properties request.
type SearchQuery struct {
	Text           string
	Region         *GeoRegion
	Dates          *DateRange
	PropertyTypeID *uuid.UUID
	AmenityIDs     []uuid.UUID
	ServiceIDs     []uuid.UUID
	Filters        []SearchFilter
	Page           int
	PageSize       int
}

// PropertyResult - one card of the search result page.
type PropertyResult struct {
	PropertyID      uuid.UUID
	PropertyTypeID  uuid.UUID
	Title           string
	Address         string
	Location        Coordinate
	Geohash         string
	Rating          float64
	DistanceKm      *float64
	AvailableUnitID *uuid.UUID
}

// PaginatedResult - standard paginated response.
type PaginatedResult[T any] struct {
	Items        []T
	TotalCount   int
	CurrentPage  int
	ItemsPerPage int
	TotalPages   int
}

// SortOrder - default relevance order when the query has no geo-region.
type SortOrder string

const (
	SortByRatingDesc SortOrder = "rating_desc"
	SortByNewest     SortOrder = "newest"
	SortByTitleAsc   SortOrder = "title_asc"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortByRatingDesc, SortByNewest, SortByTitleAsc:
		return true
	}
	return false
}
