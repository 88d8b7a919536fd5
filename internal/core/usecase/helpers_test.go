package usecase

import (
	"context"
	"search-analytics-service/internal/adapters/locker"
	"search-analytics-service/internal/adapters/memory"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func stay(from, to string) domain.DateRange {
	return domain.DateRange{Start: day(from), End: day(to)}
}

// countingStorage counts storage calls made through it.
type countingStorage struct {
	*memory.Storage
	calls atomic.Int32
	err   error
}

func newCountingStorage() *countingStorage {
	return &countingStorage{Storage: memory.NewStorage()}
}

func (c *countingStorage) hit() error {
	c.calls.Add(1)
	return c.err
}

func (c *countingStorage) GetActiveProperties(ctx context.Context) ([]domain.Property, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.Storage.GetActiveProperties(ctx)
}

func (c *countingStorage) GetPropertiesInBoundingBox(ctx context.Context, box port.BoundingBox) ([]domain.Property, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.Storage.GetPropertiesInBoundingBox(ctx, box)
}

func (c *countingStorage) GetPropertyByID(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.Storage.GetPropertyByID(ctx, id)
}

func (c *countingStorage) GetUnitsByProperty(ctx context.Context, id uuid.UUID) ([]domain.Unit, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.Storage.GetUnitsByProperty(ctx, id)
}

func (c *countingStorage) GetBookingsByUnit(ctx context.Context, id uuid.UUID) ([]domain.Booking, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.Storage.GetBookingsByUnit(ctx, id)
}

func (c *countingStorage) GetBookingsByProperty(ctx context.Context, id uuid.UUID, r *domain.DateRange) ([]domain.Booking, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.Storage.GetBookingsByProperty(ctx, id, r)
}

func (c *countingStorage) GetReviewsByProperty(ctx context.Context, id uuid.UUID, r domain.DateRange) ([]domain.Review, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.Storage.GetReviewsByProperty(ctx, id, r)
}

type recordedEvent struct {
	eventType port.BookingEventType
	booking   domain.Booking
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, eventType port.BookingEventType, booking domain.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, booking: booking})
	return p.err
}

type sentMessage struct {
	userID  uuid.UUID
	message port.UserMessage
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) SendMessage(_ context.Context, userID uuid.UUID, message port.UserMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{userID: userID, message: message})
}

type fixture struct {
	storage   *countingStorage
	locker    *locker.UnitLocker
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newFixture() *fixture {
	return &fixture{
		storage:   newCountingStorage(),
		locker:    locker.NewUnitLocker(),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
}

func (f *fixture) addProperty(title string, rating float64, loc domain.Coordinate) domain.Property {
	p := domain.Property{
		ID:             uuid.New(),
		PropertyTypeID: uuid.New(),
		Title:          title,
		Location:       loc,
		Rating:         rating,
		Fields:         map[uuid.UUID]domain.FieldValue{},
		CreatedAt:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.storage.AddProperty(p)
	return p
}

func (f *fixture) addUnit(p domain.Property, createdAt time.Time) domain.Unit {
	u := domain.Unit{ID: uuid.New(), PropertyID: p.ID, Name: "unit", CreatedAt: createdAt}
	if err := f.storage.AddUnit(u); err != nil {
		panic(err)
	}
	return u
}

func (f *fixture) addBooking(u domain.Unit, status domain.BookingStatus, from, to string) domain.Booking {
	b := domain.Booking{
		ID:        uuid.New(),
		UnitID:    u.ID,
		GuestID:   uuid.New(),
		CheckIn:   day(from),
		CheckOut:  day(to),
		Status:    status,
		CreatedAt: day(from).Add(-72 * time.Hour),
	}
	if err := f.storage.AddBooking(b); err != nil {
		panic(err)
	}
	b.PropertyID = u.PropertyID
	return b
}
