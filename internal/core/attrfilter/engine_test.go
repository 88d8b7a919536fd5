package attrfilter

import (
	"errors"
	"search-analytics-service/internal/core/domain"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fieldRooms    = uuid.New()
	fieldPets     = uuid.New()
	fieldView     = uuid.New()
	fieldCategory = uuid.New()
	fieldMissing  = uuid.New()
	typeApartment = uuid.New()
	typeHouse     = uuid.New()
	wifi          = uuid.New()
	parking       = uuid.New()
	breakfast     = uuid.New()
)

func testProperty() *domain.Property {
	return &domain.Property{
		ID:             uuid.New(),
		PropertyTypeID: typeApartment,
		Title:          "Sunny Loft near the Old Town",
		Address:        "Karl Marx St 12, Minsk",
		Fields: map[uuid.UUID]domain.FieldValue{
			fieldRooms:    domain.NumberValue(3),
			fieldPets:     domain.BoolValue(true),
			fieldView:     domain.StringValue("Sea and Mountains"),
			fieldCategory: domain.EnumValue("premium"),
		},
		AmenityIDs: []uuid.UUID{wifi, parking},
		ServiceIDs: []uuid.UUID{breakfast},
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil)
	require.NoError(t, err)
	return e
}

func upper(v float64) *domain.FieldValue {
	fv := domain.NumberValue(v)
	return &fv
}

func TestMatches_Operators(t *testing.T) {
	e := newEngine(t)
	p := testProperty()

	tests := []struct {
		name   string
		filter domain.SearchFilter
		want   bool
	}{
		{"number eq", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorEquals, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(3)}, true},
		{"number neq", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorNotEquals, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(3)}, false},
		{"number gt", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorGreaterThan, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(2)}, true},
		{"number gte boundary", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorGreaterOrEqual, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(3)}, true},
		{"number lt", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorLessThan, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(3)}, false},
		{"number lte boundary", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorLessOrEqual, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(3)}, true},
		{"number range inclusive", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorRange, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(1), UpperValue: upper(3)}, true},
		{"number range outside", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorRange, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(4), UpperValue: upper(6)}, false},
		{"bool eq", domain.SearchFilter{FieldID: fieldPets, Operator: domain.OperatorEquals, DataType: domain.FieldTypeBoolean, Value: domain.BoolValue(true)}, true},
		{"bool neq", domain.SearchFilter{FieldID: fieldPets, Operator: domain.OperatorNotEquals, DataType: domain.FieldTypeBoolean, Value: domain.BoolValue(true)}, false},
		{"string eq ignores case", domain.SearchFilter{FieldID: fieldView, Operator: domain.OperatorEquals, DataType: domain.FieldTypeString, Value: domain.StringValue("sea and mountains")}, true},
		{"string contains", domain.SearchFilter{FieldID: fieldView, Operator: domain.OperatorContains, DataType: domain.FieldTypeString, Value: domain.StringValue("MOUNTAIN")}, true},
		{"string contains miss", domain.SearchFilter{FieldID: fieldView, Operator: domain.OperatorContains, DataType: domain.FieldTypeString, Value: domain.StringValue("forest")}, false},
		{"enum eq", domain.SearchFilter{FieldID: fieldCategory, Operator: domain.OperatorEquals, DataType: domain.FieldTypeEnum, Value: domain.EnumValue("premium")}, true},
		{"enum membership", domain.SearchFilter{FieldID: fieldCategory, Operator: domain.OperatorContains, DataType: domain.FieldTypeEnum,
			Values: []domain.FieldValue{domain.EnumValue("standard"), domain.EnumValue("premium")}}, true},
		{"enum membership miss", domain.SearchFilter{FieldID: fieldCategory, Operator: domain.OperatorContains, DataType: domain.FieldTypeEnum,
			Values: []domain.FieldValue{domain.EnumValue("standard")}}, false},
		{"unknown field fails", domain.SearchFilter{FieldID: fieldMissing, Operator: domain.OperatorEquals, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(1)}, false},
		{"declared type mismatch fails", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorEquals, DataType: domain.FieldTypeString, Value: domain.StringValue("3")}, false},
		{"scoped to another property type fails", domain.SearchFilter{PropertyTypeID: &typeHouse, FieldID: fieldRooms, Operator: domain.OperatorEquals, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(3)}, false},
		{"scoped to own property type", domain.SearchFilter{PropertyTypeID: &typeApartment, FieldID: fieldRooms, Operator: domain.OperatorEquals, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(3)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Matches(p, []domain.SearchFilter{tt.filter}))
		})
	}
}

func TestMatches_EmptyAndConjunction(t *testing.T) {
	e := newEngine(t)
	p := testProperty()

	assert.True(t, e.Matches(p, nil))

	pass := domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorGreaterThan, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(1)}
	fail := domain.SearchFilter{FieldID: fieldPets, Operator: domain.OperatorEquals, DataType: domain.FieldTypeBoolean, Value: domain.BoolValue(false)}
	assert.True(t, e.Matches(p, []domain.SearchFilter{pass}))
	assert.False(t, e.Matches(p, []domain.SearchFilter{pass, fail}))
}

func TestMatchesQuery(t *testing.T) {
	e := newEngine(t)
	p := testProperty()

	assert.True(t, e.MatchesQuery(p, domain.SearchQuery{}))
	assert.True(t, e.MatchesQuery(p, domain.SearchQuery{Text: "old town"}))
	assert.True(t, e.MatchesQuery(p, domain.SearchQuery{Text: "MINSK"}))
	assert.False(t, e.MatchesQuery(p, domain.SearchQuery{Text: "Grodno"}))
	assert.True(t, e.MatchesQuery(p, domain.SearchQuery{AmenityIDs: []uuid.UUID{wifi, parking}}))
	assert.False(t, e.MatchesQuery(p, domain.SearchQuery{AmenityIDs: []uuid.UUID{wifi, uuid.New()}}))
	assert.True(t, e.MatchesQuery(p, domain.SearchQuery{ServiceIDs: []uuid.UUID{breakfast}}))
	assert.False(t, e.MatchesQuery(p, domain.SearchQuery{ServiceIDs: []uuid.UUID{uuid.New()}}))
	assert.True(t, e.MatchesQuery(p, domain.SearchQuery{PropertyTypeID: &typeApartment}))
	assert.False(t, e.MatchesQuery(p, domain.SearchQuery{PropertyTypeID: &typeHouse}))
}

func TestFolder_ReusedAcrossComparisons(t *testing.T) {
	fl := newFolder()

	assert.Equal(t, fl.fold("STRASSE"), fl.fold("Straße"))
	assert.Equal(t, "été", fl.fold("ÉTÉ"))
	assert.True(t, fl.contains("Karl Marx St 12, Minsk", " MARX "))
	assert.False(t, fl.contains("Karl Marx St 12, Minsk", "lenin"))
	assert.Equal(t, "sea and mountains", fl.fold("Sea and Mountains"))
}

func TestMatchesQuery_TextAndSeveralStringFilters(t *testing.T) {
	e := newEngine(t)
	p := testProperty()
	p.Fields[fieldView] = domain.StringValue("Blick auf die Hauptstraße")

	q := domain.SearchQuery{
		Text: "MINSK",
		Filters: []domain.SearchFilter{
			{FieldID: fieldView, Operator: domain.OperatorEquals, DataType: domain.FieldTypeString, Value: domain.StringValue("BLICK AUF DIE HAUPTSTRASSE")},
			{FieldID: fieldView, Operator: domain.OperatorContains, DataType: domain.FieldTypeString, Value: domain.StringValue("strasse")},
			{FieldID: fieldView, Operator: domain.OperatorNotEquals, DataType: domain.FieldTypeString, Value: domain.StringValue("blick")},
		},
	}
	assert.True(t, e.MatchesQuery(p, q))

	q.Filters = append(q.Filters, domain.SearchFilter{FieldID: fieldView, Operator: domain.OperatorContains, DataType: domain.FieldTypeString, Value: domain.StringValue("meer")})
	assert.False(t, e.MatchesQuery(p, q))
}

func TestValidate(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name   string
		filter domain.SearchFilter
		ok     bool
	}{
		{"valid number", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorGreaterThan, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(1)}, true},
		{"missing field id", domain.SearchFilter{Operator: domain.OperatorEquals, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(1)}, false},
		{"unknown data type", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorEquals, DataType: "date", Value: domain.NumberValue(1)}, false},
		{"unsupported operator for bool", domain.SearchFilter{FieldID: fieldPets, Operator: domain.OperatorGreaterThan, DataType: domain.FieldTypeBoolean, Value: domain.BoolValue(true)}, false},
		{"value type mismatch", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorEquals, DataType: domain.FieldTypeNumber, Value: domain.StringValue("3")}, false},
		{"range without upper", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorRange, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(1)}, false},
		{"range reversed", domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorRange, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(5), UpperValue: upper(1)}, false},
		{"enum values of wrong type", domain.SearchFilter{FieldID: fieldCategory, Operator: domain.OperatorContains, DataType: domain.FieldTypeEnum,
			Values: []domain.FieldValue{domain.StringValue("premium")}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Validate([]domain.SearchFilter{tt.filter})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestEngine_EnabledOperators(t *testing.T) {
	e, err := NewEngine([]domain.FilterOperator{domain.OperatorEquals})
	require.NoError(t, err)

	gt := domain.SearchFilter{FieldID: fieldRooms, Operator: domain.OperatorGreaterThan, DataType: domain.FieldTypeNumber, Value: domain.NumberValue(1)}
	assert.Error(t, e.Validate([]domain.SearchFilter{gt}))
	assert.False(t, e.Matches(testProperty(), []domain.SearchFilter{gt}))

	_, err = NewEngine([]domain.FilterOperator{"like"})
	assert.Error(t, err)
}
