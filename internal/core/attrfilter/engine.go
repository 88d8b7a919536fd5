// Package attrfilter evaluates search predicates against the dynamic attributes of a property.
package attrfilter

import (
	"fmt"
	"search-analytics-service/internal/core/domain"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// strategy compares a stored value with the filter. Selected by the declared data type of the filter.
type strategy struct {
	operators map[domain.FilterOperator]bool
	compare   func(stored domain.FieldValue, f domain.SearchFilter, fl *folder) bool
}

var strategies = map[domain.FieldType]strategy{
	domain.FieldTypeNumber: {
		operators: opSet(domain.OperatorEquals, domain.OperatorNotEquals, domain.OperatorGreaterThan,
			domain.OperatorGreaterOrEqual, domain.OperatorLessThan, domain.OperatorLessOrEqual, domain.OperatorRange),
		compare: compareNumber,
	},
	domain.FieldTypeBoolean: {
		operators: opSet(domain.OperatorEquals, domain.OperatorNotEquals),
		compare:   compareBool,
	},
	domain.FieldTypeString: {
		operators: opSet(domain.OperatorEquals, domain.OperatorNotEquals, domain.OperatorContains),
		compare:   compareString,
	},
	domain.FieldTypeEnum: {
		operators: opSet(domain.OperatorEquals, domain.OperatorNotEquals, domain.OperatorContains),
		compare:   compareEnum,
	},
}

// AllOperators lists every operator the engine knows.
func AllOperators() []domain.FilterOperator {
	return []domain.FilterOperator{
		domain.OperatorEquals, domain.OperatorNotEquals,
		domain.OperatorGreaterThan, domain.OperatorGreaterOrEqual,
		domain.OperatorLessThan, domain.OperatorLessOrEqual,
		domain.OperatorRange, domain.OperatorContains,
	}
}

type Engine struct {
	enabled map[domain.FilterOperator]bool
}

// NewEngine creates an engine that accepts only the given operators. An empty list enables all of them.
func NewEngine(enabled []domain.FilterOperator) (*Engine, error) {
	if len(enabled) == 0 {
		enabled = AllOperators()
	}
	known := opSet(AllOperators()...)
	set := make(map[domain.FilterOperator]bool, len(enabled))
	for _, op := range enabled {
		if !known[op] {
			return nil, fmt.Errorf("unknown filter operator %q", op)
		}
		set[op] = true
	}
	return &Engine{enabled: set}, nil
}

// Validate rejects filters the engine cannot evaluate. Called before any storage access.
func (e *Engine) Validate(filters []domain.SearchFilter) error {
	for i, f := range filters {
		field := fmt.Sprintf("filters[%d]", i)

		if f.FieldID == uuid.Nil {
			return domain.NewValidationError(field+".field_id", "field id is required")
		}
		st, ok := strategies[f.DataType]
		if !ok {
			return domain.NewValidationError(field+".data_type", "unsupported data type %q", f.DataType)
		}
		if !e.enabled[f.Operator] {
			return domain.NewValidationError(field+".operator", "operator %q is not enabled", f.Operator)
		}
		if !st.operators[f.Operator] {
			return domain.NewValidationError(field+".operator", "operator %q is not supported for %s fields", f.Operator, f.DataType)
		}

		if f.Operator == domain.OperatorContains && f.DataType == domain.FieldTypeEnum && len(f.Values) > 0 {
			for _, v := range f.Values {
				if v.Type != f.DataType {
					return domain.NewValidationError(field+".values", "all values must be of type %s", f.DataType)
				}
			}
			continue
		}
		if f.Value.Type != f.DataType {
			return domain.NewValidationError(field+".value", "value type %q does not match declared type %q", f.Value.Type, f.DataType)
		}
		if f.Operator == domain.OperatorRange {
			if f.UpperValue == nil || f.UpperValue.Type != domain.FieldTypeNumber {
				return domain.NewValidationError(field+".upper_value", "range operator requires a numeric upper value")
			}
			if f.UpperValue.Number < f.Value.Number {
				return domain.NewValidationError(field+".upper_value", "upper value must not be less than value")
			}
		}
	}
	return nil
}

// Matches reports whether the property satisfies every filter. An empty filter set matches.
// A missing field, a value of another type or a property of another type fails the filter.
func (e *Engine) Matches(p *domain.Property, filters []domain.SearchFilter) bool {
	return e.matchAll(p, filters, newFolder())
}

func (e *Engine) matchAll(p *domain.Property, filters []domain.SearchFilter, fl *folder) bool {
	for _, f := range filters {
		if !e.matchOne(p, f, fl) {
			return false
		}
	}
	return true
}

// MatchesQuery applies the catalog part of a search query: property type, required amenities
// and services, free text and the dynamic field filters.
func (e *Engine) MatchesQuery(p *domain.Property, q domain.SearchQuery) bool {
	if q.PropertyTypeID != nil && p.PropertyTypeID != *q.PropertyTypeID {
		return false
	}
	for _, id := range q.AmenityIDs {
		if !p.HasAmenity(id) {
			return false
		}
	}
	for _, id := range q.ServiceIDs {
		if !p.HasService(id) {
			return false
		}
	}
	fl := newFolder()
	if text := strings.TrimSpace(q.Text); text != "" {
		if !fl.contains(p.Title, text) && !fl.contains(p.Address, text) {
			return false
		}
	}
	return e.matchAll(p, q.Filters, fl)
}

func (e *Engine) matchOne(p *domain.Property, f domain.SearchFilter, fl *folder) bool {
	if !e.enabled[f.Operator] {
		return false
	}
	if f.PropertyTypeID != nil && *f.PropertyTypeID != p.PropertyTypeID {
		return false
	}
	stored, ok := p.Fields[f.FieldID]
	if !ok || stored.Type != f.DataType {
		return false
	}
	st, ok := strategies[f.DataType]
	if !ok || !st.operators[f.Operator] {
		return false
	}
	return st.compare(stored, f, fl)
}

func compareNumber(stored domain.FieldValue, f domain.SearchFilter, _ *folder) bool {
	v := stored.Number
	switch f.Operator {
	case domain.OperatorEquals:
		return v == f.Value.Number
	case domain.OperatorNotEquals:
		return v != f.Value.Number
	case domain.OperatorGreaterThan:
		return v > f.Value.Number
	case domain.OperatorGreaterOrEqual:
		return v >= f.Value.Number
	case domain.OperatorLessThan:
		return v < f.Value.Number
	case domain.OperatorLessOrEqual:
		return v <= f.Value.Number
	case domain.OperatorRange:
		return f.UpperValue != nil && v >= f.Value.Number && v <= f.UpperValue.Number
	}
	return false
}

func compareBool(stored domain.FieldValue, f domain.SearchFilter, _ *folder) bool {
	switch f.Operator {
	case domain.OperatorEquals:
		return stored.Bool == f.Value.Bool
	case domain.OperatorNotEquals:
		return stored.Bool != f.Value.Bool
	}
	return false
}

func compareString(stored domain.FieldValue, f domain.SearchFilter, fl *folder) bool {
	switch f.Operator {
	case domain.OperatorEquals:
		return fl.fold(stored.Text) == fl.fold(f.Value.Text)
	case domain.OperatorNotEquals:
		return fl.fold(stored.Text) != fl.fold(f.Value.Text)
	case domain.OperatorContains:
		return fl.contains(stored.Text, f.Value.Text)
	}
	return false
}

func compareEnum(stored domain.FieldValue, f domain.SearchFilter, _ *folder) bool {
	switch f.Operator {
	case domain.OperatorEquals:
		return stored.Text == f.Value.Text
	case domain.OperatorNotEquals:
		return stored.Text != f.Value.Text
	case domain.OperatorContains:
		if len(f.Values) == 0 {
			return stored.Text == f.Value.Text
		}
		for _, v := range f.Values {
			if stored.Text == v.Text {
				return true
			}
		}
	}
	return false
}

// folder wraps one Unicode case folder for a single match call.
// A caser keeps state, so a folder is never shared between goroutines.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Fold()}
}

func (fl *folder) fold(s string) string {
	return fl.caser.String(s)
}

func (fl *folder) contains(haystack, needle string) bool {
	return strings.Contains(fl.fold(haystack), fl.fold(strings.TrimSpace(needle)))
}

func opSet(ops ...domain.FilterOperator) map[domain.FilterOperator]bool {
	set := make(map[domain.FilterOperator]bool, len(ops))
	for _, op := range ops {
		set[op] = true
	}
	return set
}
