package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"
	"github.com/mmcloughlin/geohash"
)

const (
	keyProperty = "property:"
	keyUnits    = "units:"
	// list entries depend on every property and are kept in-process only
	keyList          = "list:"
	keyActive        = keyList + "active"
	keyBoxPrefix     = keyList + "bbox:"
	boxGeohashLength = 5
)

// RemoteCache is the subset of *memcache.Client used as the second level.
type RemoteCache interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
	DeleteAll() error
}

type Config struct {
	TTL       time.Duration // local entries
	RemoteTTL time.Duration // memcached entries
	MaxSize   int64
}

// CachedPropertyStorage is a read-through cache in front of the catalog storage.
// Bookings are never cached: availability always reads the source of truth.
type CachedPropertyStorage struct {
	next       port.PropertyStoragePort
	remote     RemoteCache
	properties *ccache.Cache[*domain.Property]
	units      *ccache.Cache[[]domain.Unit]
	lists      *ccache.Cache[[]domain.Property]
	cfg        Config
}

var (
	_ port.PropertyStoragePort = (*CachedPropertyStorage)(nil)
	_ port.CatalogCachePort    = (*CachedPropertyStorage)(nil)
)

// NewCachedPropertyStorage wraps next. remote may be nil.
func NewCachedPropertyStorage(next port.PropertyStoragePort, remote RemoteCache, cfg Config) *CachedPropertyStorage {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.RemoteTTL <= 0 {
		cfg.RemoteTTL = 5 * cfg.TTL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10000
	}
	return &CachedPropertyStorage{
		next:       next,
		remote:     remote,
		properties: ccache.New(ccache.Configure[*domain.Property]().MaxSize(cfg.MaxSize)),
		units:      ccache.New(ccache.Configure[[]domain.Unit]().MaxSize(cfg.MaxSize)),
		lists:      ccache.New(ccache.Configure[[]domain.Property]().MaxSize(cfg.MaxSize / 10)),
		cfg:        cfg,
	}
}

func (c *CachedPropertyStorage) GetActiveProperties(ctx context.Context) ([]domain.Property, error) {
	return readThrough(ctx, c, c.lists, keyActive, false, func() ([]domain.Property, error) {
		return c.next.GetActiveProperties(ctx)
	})
}

func (c *CachedPropertyStorage) GetPropertiesInBoundingBox(ctx context.Context, box port.BoundingBox) ([]domain.Property, error) {
	return readThrough(ctx, c, c.lists, boxKey(box), false, func() ([]domain.Property, error) {
		return c.next.GetPropertiesInBoundingBox(ctx, box)
	})
}

func (c *CachedPropertyStorage) GetPropertyByID(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	return readThrough(ctx, c, c.properties, keyProperty+propertyID.String(), true, func() (*domain.Property, error) {
		return c.next.GetPropertyByID(ctx, propertyID)
	})
}

func (c *CachedPropertyStorage) GetUnitsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Unit, error) {
	return readThrough(ctx, c, c.units, keyUnits+propertyID.String(), true, func() ([]domain.Unit, error) {
		return c.next.GetUnitsByProperty(ctx, propertyID)
	})
}

// GetUnitByID is not cached: the booking path needs the current deletion state.
func (c *CachedPropertyStorage) GetUnitByID(ctx context.Context, unitID uuid.UUID) (*domain.Unit, error) {
	return c.next.GetUnitByID(ctx, unitID)
}

func (c *CachedPropertyStorage) InvalidateProperty(ctx context.Context, propertyID uuid.UUID) {
	propertyKey, unitsKey := keyProperty+propertyID.String(), keyUnits+propertyID.String()
	c.properties.Delete(propertyKey)
	c.units.Delete(unitsKey)
	c.lists.DeletePrefix(keyList)
	c.deleteRemote(ctx, propertyKey)
	c.deleteRemote(ctx, unitsKey)
}

func (c *CachedPropertyStorage) InvalidateAll(ctx context.Context) {
	c.properties.Clear()
	c.units.Clear()
	c.lists.Clear()
	if c.remote == nil {
		return
	}
	if err := c.remote.DeleteAll(); err != nil {
		contextkeys.LoggerFromContext(ctx).Warn("Memcached flush failed", port.Fields{
			"component": "CachedPropertyStorage",
			"error":     err.Error(),
		})
	}
}

// Stop releases the background workers of the local caches.
func (c *CachedPropertyStorage) Stop() {
	c.properties.Stop()
	c.units.Stop()
	c.lists.Stop()
}

// readThrough looks in the local cache, then memcached (when shared is set), then storage.
// Cache failures are logged and never fail the read.
func readThrough[T any](
	ctx context.Context,
	c *CachedPropertyStorage,
	local *ccache.Cache[T],
	key string,
	shared bool,
	load func() (T, error),
) (T, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "CachedPropertyStorage",
		"cache_key": key,
	})

	if item := local.Get(key); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	useRemote := shared && c.remote != nil
	if useRemote {
		if value, ok := getRemote[T](c.remote, key, logger); ok {
			local.Set(key, value, c.cfg.TTL)
			return value, nil
		}
	}

	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	local.Set(key, value, c.cfg.TTL)
	if useRemote {
		c.setRemote(key, value, logger)
	}
	return value, nil
}

func getRemote[T any](remote RemoteCache, key string, logger port.LoggerPort) (T, bool) {
	var value T
	item, err := remote.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			logger.Warn("Memcached get failed", port.Fields{"error": err.Error()})
		}
		return value, false
	}
	if err := json.Unmarshal(item.Value, &value); err != nil {
		logger.Warn("Cached value is corrupt, ignoring it", port.Fields{"error": err.Error()})
		return value, false
	}
	return value, true
}

func (c *CachedPropertyStorage) setRemote(key string, value interface{}, logger port.LoggerPort) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to encode value for memcached", port.Fields{"error": err.Error()})
		return
	}
	err = c.remote.Set(&memcache.Item{
		Key:        key,
		Value:      data,
		Expiration: int32(c.cfg.RemoteTTL / time.Second),
	})
	if err != nil {
		logger.Warn("Memcached set failed", port.Fields{"error": err.Error()})
	}
}

func (c *CachedPropertyStorage) deleteRemote(ctx context.Context, key string) {
	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		contextkeys.LoggerFromContext(ctx).Warn("Memcached delete failed", port.Fields{
			"component": "CachedPropertyStorage",
			"cache_key": key,
			"error":     err.Error(),
		})
	}
}

// boxKey groups boxes by the geohash of their center; the exact bounds keep keys unique.
func boxKey(box port.BoundingBox) string {
	centerLat := (box.MinLatitude + box.MaxLatitude) / 2
	centerLon := (box.MinLongitude + box.MaxLongitude) / 2
	return fmt.Sprintf("%s%s:%s:%s:%s:%s",
		keyBoxPrefix,
		geohash.EncodeWithPrecision(centerLat, centerLon, boxGeohashLength),
		strconv.FormatFloat(box.MinLatitude, 'g', -1, 64),
		strconv.FormatFloat(box.MaxLatitude, 'g', -1, 64),
		strconv.FormatFloat(box.MinLongitude, 'g', -1, 64),
		strconv.FormatFloat(box.MaxLongitude, 'g', -1, 64),
	)
}
