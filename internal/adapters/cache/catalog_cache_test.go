package cache

import (
	"context"
	"errors"
	"search-analytics-service/internal/adapters/memory"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStorage struct {
	*memory.Storage
	mu    sync.Mutex
	calls map[string]int
}

func newCountingStorage() *countingStorage {
	return &countingStorage{Storage: memory.NewStorage(), calls: map[string]int{}}
}

func (s *countingStorage) hit(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
}

func (s *countingStorage) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *countingStorage) GetActiveProperties(ctx context.Context) ([]domain.Property, error) {
	s.hit("active")
	return s.Storage.GetActiveProperties(ctx)
}

func (s *countingStorage) GetPropertiesInBoundingBox(ctx context.Context, box port.BoundingBox) ([]domain.Property, error) {
	s.hit("bbox")
	return s.Storage.GetPropertiesInBoundingBox(ctx, box)
}

func (s *countingStorage) GetPropertyByID(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	s.hit("property")
	return s.Storage.GetPropertyByID(ctx, id)
}

func (s *countingStorage) GetUnitsByProperty(ctx context.Context, id uuid.UUID) ([]domain.Unit, error) {
	s.hit("units")
	return s.Storage.GetUnitsByProperty(ctx, id)
}

type fakeMemcache struct {
	mu    sync.Mutex
	items map[string][]byte
	err   error
}

func newFakeMemcache() *fakeMemcache { return &fakeMemcache{items: map[string][]byte{}} }

func (m *fakeMemcache) Get(key string) (*memcache.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return &memcache.Item{Key: key, Value: v}, nil
}

func (m *fakeMemcache) Set(item *memcache.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[item.Key] = item.Value
	return nil
}

func (m *fakeMemcache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return memcache.ErrCacheMiss
	}
	delete(m.items, key)
	return nil
}

func (m *fakeMemcache) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string][]byte{}
	return nil
}

func seedProperty(s *countingStorage) domain.Property {
	field := uuid.New()
	p := domain.Property{
		ID:        uuid.New(),
		Title:     "Lake house",
		Location:  domain.Coordinate{Latitude: 53.9, Longitude: 27.56},
		Fields:    map[uuid.UUID]domain.FieldValue{field: domain.NumberValue(3)},
		Rating:    4.5,
		CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.AddProperty(p)
	return p
}

func TestCache_ReadThroughLocal(t *testing.T) {
	storage := newCountingStorage()
	p := seedProperty(storage)
	c := NewCachedPropertyStorage(storage, nil, Config{TTL: time.Minute})
	defer c.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.GetPropertyByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Title, got.Title)

		_, err = c.GetActiveProperties(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, storage.count("property"))
	assert.Equal(t, 1, storage.count("active"))
}

func TestCache_NotFoundIsNotCached(t *testing.T) {
	storage := newCountingStorage()
	c := NewCachedPropertyStorage(storage, nil, Config{})
	defer c.Stop()
	id := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := c.GetPropertyByID(context.Background(), id)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	}
	assert.Equal(t, 2, storage.count("property"))
}

func TestCache_InvalidatePropertyDropsEntryAndLists(t *testing.T) {
	storage := newCountingStorage()
	p := seedProperty(storage)
	remote := newFakeMemcache()
	c := NewCachedPropertyStorage(storage, remote, Config{})
	defer c.Stop()
	ctx := context.Background()
	box := port.BoundingBox{MinLatitude: 53, MaxLatitude: 54, MinLongitude: 27, MaxLongitude: 28}

	_, err := c.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = c.GetPropertiesInBoundingBox(ctx, box)
	require.NoError(t, err)
	assert.Contains(t, remote.items, keyProperty+p.ID.String())

	c.InvalidateProperty(ctx, p.ID)
	assert.NotContains(t, remote.items, keyProperty+p.ID.String())

	_, err = c.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = c.GetPropertiesInBoundingBox(ctx, box)
	require.NoError(t, err)
	assert.Equal(t, 2, storage.count("property"))
	assert.Equal(t, 2, storage.count("bbox"))
}

func TestCache_SecondLevelSurvivesLocalLoss(t *testing.T) {
	storage := newCountingStorage()
	p := seedProperty(storage)
	remote := newFakeMemcache()
	ctx := context.Background()

	first := NewCachedPropertyStorage(storage, remote, Config{})
	defer first.Stop()
	_, err := first.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)

	// another instance sharing memcached
	second := NewCachedPropertyStorage(storage, remote, Config{})
	defer second.Stop()
	got, err := second.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Fields, got.Fields)
	assert.Equal(t, 1, storage.count("property"))
}

func TestCache_RemoteFailureFallsBackToStorage(t *testing.T) {
	storage := newCountingStorage()
	p := seedProperty(storage)
	remote := newFakeMemcache()
	remote.err = errors.New("connection refused")
	c := NewCachedPropertyStorage(storage, remote, Config{})
	defer c.Stop()

	got, err := c.GetUnitsByProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, storage.count("units"))
}

func TestCache_InvalidateAll(t *testing.T) {
	storage := newCountingStorage()
	p := seedProperty(storage)
	remote := newFakeMemcache()
	c := NewCachedPropertyStorage(storage, remote, Config{})
	defer c.Stop()
	ctx := context.Background()

	_, _ = c.GetPropertyByID(ctx, p.ID)
	c.InvalidateAll(ctx)
	assert.Empty(t, remote.items)

	_, _ = c.GetPropertyByID(ctx, p.ID)
	assert.Equal(t, 2, storage.count("property"))
}

func TestBoxKey(t *testing.T) {
	a := port.BoundingBox{MinLatitude: 53, MaxLatitude: 54, MinLongitude: 27, MaxLongitude: 28}
	b := a
	b.MaxLongitude = 28.0000001

	assert.True(t, strings.HasPrefix(boxKey(a), keyBoxPrefix))
	assert.NotEqual(t, boxKey(a), boxKey(b))
	assert.Equal(t, boxKey(a), boxKey(a))
	assert.LessOrEqual(t, len(boxKey(a)), 250)
}
