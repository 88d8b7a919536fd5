// Package memory keeps the catalog and bookings in process memory.
// Used for local runs (STORAGE_DRIVER=memory) and as the storage of use case tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"search-analytics-service/internal/core/availability"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"search-analytics-service/internal/core/spatial"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Storage struct {
	mu         sync.RWMutex
	properties map[uuid.UUID]domain.Property
	units      map[uuid.UUID]domain.Unit
	bookings   map[uuid.UUID]domain.Booking
	reviews    map[uuid.UUID]domain.Review
	now        func() time.Time
}

var (
	_ port.PropertyStoragePort = (*Storage)(nil)
	_ port.BookingStoragePort  = (*Storage)(nil)
	_ port.ReviewStoragePort   = (*Storage)(nil)
)

func NewStorage() *Storage {
	return &Storage{
		properties: make(map[uuid.UUID]domain.Property),
		units:      make(map[uuid.UUID]domain.Unit),
		bookings:   make(map[uuid.UUID]domain.Booking),
		reviews:    make(map[uuid.UUID]domain.Review),
		now:        time.Now,
	}
}

func (s *Storage) AddProperty(p domain.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
}

// AddUnit fails when the parent property is unknown.
func (s *Storage) AddUnit(u domain.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[u.PropertyID]; !ok {
		return fmt.Errorf("unit %s: %w", u.ID, domain.ErrPropertyNotFound)
	}
	s.units[u.ID] = u
	return nil
}

// AddBooking stores a historical booking as is, without the overlap check.
func (s *Storage) AddBooking(b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[b.UnitID]
	if !ok {
		return fmt.Errorf("booking %s: %w", b.ID, domain.ErrUnitNotFound)
	}
	b.PropertyID = unit.PropertyID
	s.bookings[b.ID] = b
	return nil
}

func (s *Storage) AddReview(r domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[r.PropertyID]; !ok {
		return fmt.Errorf("review %s: %w", r.ID, domain.ErrPropertyNotFound)
	}
	s.reviews[r.ID] = r
	return nil
}

// DeleteProperty soft-deletes the property and cascades the marker to its units.
func (s *Storage) DeleteProperty(propertyID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[propertyID]
	if !ok {
		return domain.ErrPropertyNotFound
	}
	p.DeletedAt = &at
	s.properties[propertyID] = p
	for id, u := range s.units {
		if u.PropertyID == propertyID && u.DeletedAt == nil {
			u.DeletedAt = &at
			s.units[id] = u
		}
	}
	return nil
}

// --- catalog ---

func (s *Storage) GetActiveProperties(ctx context.Context) ([]domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	sortProperties(out)
	return out, nil
}

func (s *Storage) GetPropertiesInBoundingBox(ctx context.Context, box port.BoundingBox) ([]domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Property, 0)
	for _, p := range s.properties {
		if p.IsActive() && spatial.Contains(box, p.Location) {
			out = append(out, p)
		}
	}
	sortProperties(out)
	return out, nil
}

func (s *Storage) GetPropertyByID(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return nil, domain.ErrPropertyNotFound
	}
	return &p, nil
}

func (s *Storage) GetUnitsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Unit, 0)
	for _, u := range s.units {
		if u.PropertyID == propertyID && u.IsActive() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Storage) GetUnitByID(ctx context.Context, unitID uuid.UUID) (*domain.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[unitID]
	if !ok {
		return nil, domain.ErrUnitNotFound
	}
	return &u, nil
}

// --- bookings ---

func (s *Storage) GetBookingsByUnit(ctx context.Context, unitID uuid.UUID) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookingsOfUnitLocked(unitID), nil
}

func (s *Storage) GetBookingsByProperty(ctx context.Context, propertyID uuid.UUID, checkInRange *domain.DateRange) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.PropertyID != propertyID {
			continue
		}
		if checkInRange != nil && !checkInRange.Contains(domain.TruncateToDay(b.CheckIn)) {
			continue
		}
		out = append(out, b)
	}
	sortBookings(out)
	return out, nil
}

func (s *Storage) GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

// CreateBooking checks for overlaps and inserts under the same write lock.
func (s *Storage) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[booking.UnitID]
	if !ok || !unit.IsActive() {
		return domain.ErrUnitNotFound
	}
	if _, exists := s.bookings[booking.ID]; exists {
		return fmt.Errorf("booking %s already exists", booking.ID)
	}
	if booking.Status.BlocksAvailability() {
		if conflicts := availability.Conflicts(s.bookingsOfUnitLocked(booking.UnitID), booking.Stay(), booking.ID); len(conflicts) > 0 {
			return fmt.Errorf("%w: overlaps booking %s", domain.ErrBookingConflict, conflicts[0].ID)
		}
	}

	booking.PropertyID = unit.PropertyID
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *Storage) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from, next domain.BookingStatus) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if b.Status != from || !from.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: booking is %s, cannot move from %s to %s",
			domain.ErrInvalidStatusTransition, b.Status, from, next)
	}
	if next.BlocksAvailability() {
		if conflicts := availability.Conflicts(s.bookingsOfUnitLocked(b.UnitID), b.Stay(), b.ID); len(conflicts) > 0 {
			return nil, fmt.Errorf("%w: overlaps booking %s", domain.ErrBookingConflict, conflicts[0].ID)
		}
	}

	b.Status = next
	b.UpdatedAt = s.now().UTC()
	s.bookings[bookingID] = b
	return &b, nil
}

func (s *Storage) GetStalePendingBookings(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusPending && b.CreatedAt.Before(createdBefore) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- reviews ---

func (s *Storage) GetReviewsByProperty(ctx context.Context, propertyID uuid.UUID, createdRange domain.DateRange) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Review, 0)
	for _, r := range s.reviews {
		if r.PropertyID == propertyID && createdRange.Contains(domain.TruncateToDay(r.CreatedAt)) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Storage) bookingsOfUnitLocked(unitID uuid.UUID) []domain.Booking {
	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.UnitID == unitID {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

func sortProperties(ps []domain.Property) {
	sort.Slice(ps, func(i, j int) bool { return lessID(ps[i].ID, ps[j].ID) })
}

func sortBookings(bs []domain.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].CheckIn.Equal(bs[j].CheckIn) {
			return bs[i].CheckIn.Before(bs[j].CheckIn)
		}
		return lessID(bs[i].ID, bs[j].ID)
	})
}

func lessID(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }
