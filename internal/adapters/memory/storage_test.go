package memory

import (
	"context"
	"errors"
	"search-analytics-service/internal/core/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func newStorageWithUnit(t *testing.T) (*Storage, domain.Property, domain.Unit) {
	t.Helper()
	s := NewStorage()
	p := domain.Property{ID: uuid.New(), Title: "Loft", Location: domain.Coordinate{Latitude: 53.9, Longitude: 27.56}}
	s.AddProperty(p)
	u := domain.Unit{ID: uuid.New(), PropertyID: p.ID, Name: "Room 1"}
	require.NoError(t, s.AddUnit(u))
	return s, p, u
}

func pending(unitID uuid.UUID, from, to string) *domain.Booking {
	return &domain.Booking{
		ID:       uuid.New(),
		UnitID:   unitID,
		GuestID:  uuid.New(),
		CheckIn:  day(from),
		CheckOut: day(to),
		Status:   domain.BookingStatusPending,
	}
}

func TestCreateBooking_ConditionalWrite(t *testing.T) {
	s, p, u := newStorageWithUnit(t)
	ctx := context.Background()

	first := pending(u.ID, "2024-03-01", "2024-03-05")
	require.NoError(t, s.CreateBooking(ctx, first))
	assert.Equal(t, p.ID, first.PropertyID)

	err := s.CreateBooking(ctx, pending(u.ID, "2024-03-04", "2024-03-06"))
	assert.True(t, errors.Is(err, domain.ErrBookingConflict))

	assert.NoError(t, s.CreateBooking(ctx, pending(u.ID, "2024-03-05", "2024-03-07")), "turnover day is free")

	err = s.CreateBooking(ctx, pending(uuid.New(), "2024-03-01", "2024-03-02"))
	assert.True(t, errors.Is(err, domain.ErrUnitNotFound))
}

func TestUpdateBookingStatus(t *testing.T) {
	s, _, u := newStorageWithUnit(t)
	ctx := context.Background()

	b := pending(u.ID, "2024-03-01", "2024-03-05")
	require.NoError(t, s.CreateBooking(ctx, b))

	_, err := s.UpdateBookingStatus(ctx, b.ID, domain.BookingStatusConfirmed, domain.BookingStatusCompleted)
	assert.True(t, errors.Is(err, domain.ErrInvalidStatusTransition), "stored status differs from the expected one")

	confirmed, err := s.UpdateBookingStatus(ctx, b.ID, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)

	cancelled, err := s.UpdateBookingStatus(ctx, b.ID, domain.BookingStatusConfirmed, domain.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	_, err = s.UpdateBookingStatus(ctx, b.ID, domain.BookingStatusCancelled, domain.BookingStatusConfirmed)
	assert.True(t, errors.Is(err, domain.ErrInvalidStatusTransition))

	_, err = s.UpdateBookingStatus(ctx, uuid.New(), domain.BookingStatusPending, domain.BookingStatusConfirmed)
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))
}

func TestGetBookingsByProperty_FiltersByCheckIn(t *testing.T) {
	s, p, u := newStorageWithUnit(t)
	ctx := context.Background()
	require.NoError(t, s.CreateBooking(ctx, pending(u.ID, "2024-03-10", "2024-03-12")))
	require.NoError(t, s.CreateBooking(ctx, pending(u.ID, "2024-03-01", "2024-03-05")))
	require.NoError(t, s.CreateBooking(ctx, pending(u.ID, "2024-04-01", "2024-04-02")))

	all, err := s.GetBookingsByProperty(ctx, p.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, day("2024-03-01"), all[0].CheckIn)

	march := domain.DateRange{Start: day("2024-03-01"), End: day("2024-04-01")}
	inMarch, err := s.GetBookingsByProperty(ctx, p.ID, &march)
	require.NoError(t, err)
	assert.Len(t, inMarch, 2)
}

func TestDeleteProperty_CascadesToUnits(t *testing.T) {
	s, p, _ := newStorageWithUnit(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteProperty(p.ID, time.Now()))

	active, err := s.GetActiveProperties(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	units, err := s.GetUnitsByProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestGetStalePendingBookings(t *testing.T) {
	s, _, u := newStorageWithUnit(t)
	ctx := context.Background()
	now := time.Now()

	old := pending(u.ID, "2024-03-01", "2024-03-02")
	old.CreatedAt = now.Add(-2 * time.Hour)
	fresh := pending(u.ID, "2024-03-03", "2024-03-04")
	fresh.CreatedAt = now
	require.NoError(t, s.CreateBooking(ctx, old))
	require.NoError(t, s.CreateBooking(ctx, fresh))

	stale, err := s.GetStalePendingBookings(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestLoadSeed(t *testing.T) {
	seed := `{
	  "properties": [{"id": "6f1c1c43-6a5e-4c39-9f55-0d3f7d2b1a01", "title": "Old Town Loft", "latitude": 53.9, "longitude": 27.56,
	    "fields": {"0e7f6d8a-0e32-4a55-8c0c-6a6a4dfc0001": {"type": "number", "value": 3}},
	    "rating": 4.7, "created_at": "2023-01-01T00:00:00Z"}],
	  "units": [{"id": "7a2d3e44-1b2c-4d5e-8f90-123456789abc", "property_id": "6f1c1c43-6a5e-4c39-9f55-0d3f7d2b1a01", "name": "Room 1"}],
	  "bookings": [{"id": "8b3e4f55-2c3d-4e6f-9a01-23456789abcd", "unit_id": "7a2d3e44-1b2c-4d5e-8f90-123456789abc",
	    "check_in": "2024-03-01", "check_out": "2024-03-05", "status": "confirmed", "total_price": 400,
	    "created_at": "2024-02-01T10:00:00Z"}],
	  "reviews": [{"id": "9c4f5a66-3d4e-4f70-8b12-3456789abcde", "property_id": "6f1c1c43-6a5e-4c39-9f55-0d3f7d2b1a01",
	    "rating": 5, "created_at": "2024-03-06T10:00:00Z"}]
	}`

	s := NewStorage()
	require.NoError(t, s.LoadSeed([]byte(seed)))

	ctx := context.Background()
	propertyID := uuid.MustParse("6f1c1c43-6a5e-4c39-9f55-0d3f7d2b1a01")
	p, err := s.GetPropertyByID(ctx, propertyID)
	require.NoError(t, err)
	assert.Equal(t, domain.NumberValue(3), p.Fields[uuid.MustParse("0e7f6d8a-0e32-4a55-8c0c-6a6a4dfc0001")])

	bookings, err := s.GetBookingsByProperty(ctx, propertyID, nil)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, domain.BookingStatusConfirmed, bookings[0].Status)
	assert.Equal(t, propertyID, bookings[0].PropertyID)
}

func TestLoadSeed_RejectsOrphans(t *testing.T) {
	s := NewStorage()
	err := s.LoadSeed([]byte(`{"units": [{"id": "7a2d3e44-1b2c-4d5e-8f90-123456789abc", "property_id": "6f1c1c43-6a5e-4c39-9f55-0d3f7d2b1a01"}]}`))
	assert.True(t, errors.Is(err, domain.ErrPropertyNotFound))
}

func TestLoadSeedFile_SampleConfig(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.LoadSeedFile("../../../config/seed.json"))

	properties, err := s.GetActiveProperties(context.Background())
	require.NoError(t, err)
	assert.Len(t, properties, 2)

	units, err := s.GetUnitsByProperty(context.Background(), uuid.MustParse("6f1c2b4e-1d7a-4c1e-9a55-0c7d3e1f2a02"))
	require.NoError(t, err)
	assert.Len(t, units, 2)
}
