package directory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"deskbridge/internal/metrics"
	"deskbridge/internal/topdesk"
)

// Category keys one class of slow-changing reference data.
type Category string

const (
	CategoryLocations   Category = "locations"
	CategoryMakes       Category = "makes"
	CategoryModels      Category = "models"
	CategoryDeviceTypes Category = "device-types"
	CategoryTemplates   Category = "templates"
	CategoryStockRooms  Category = "stockrooms"
)

// Categories lists every cacheable category.
var Categories = []Category{
	CategoryLocations,
	CategoryMakes,
	CategoryModels,
	CategoryDeviceTypes,
	CategoryTemplates,
	CategoryStockRooms,
}

// DefaultTTL bounds how long reference data is served without refetching.
const DefaultTTL = 60 * time.Minute

// Fetcher is the subset of the TopDesk client the cache needs.
type Fetcher interface {
	ListLocations(ctx context.Context) ([]topdesk.Location, error)
	ListMakes(ctx context.Context) ([]topdesk.DropdownEntry, error)
	ListModels(ctx context.Context) ([]topdesk.DropdownEntry, error)
	ListDeviceTypes(ctx context.Context) ([]topdesk.DropdownEntry, error)
	ListTemplates(ctx context.Context) ([]topdesk.Template, error)
	ListStockRooms(ctx context.Context) ([]topdesk.AssetRef, error)
}

type entry struct {
	payload   any
	fetchedAt time.Time
}

// Cache keeps TopDesk reference data for up to a TTL to minimise API calls.
// There is no single-flight guarantee: concurrent misses may fetch twice,
// which is acceptable for idempotent GETs.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[Category]entry
}

// New builds a Cache over the given fetcher. A non-positive ttl falls back to
// DefaultTTL.
func New(fetcher Fetcher, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		log:     logger,
		now:     time.Now,
		entries: make(map[Category]entry),
	}
}

// Invalidate drops the cached entry for one category.
func (c *Cache) Invalidate(cat Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cat)
}

// InvalidateAll drops every cached entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Category]entry)
}

// Locations returns the cached raw location list.
func (c *Cache) Locations(ctx context.Context) ([]topdesk.Location, error) {
	payload, err := c.get(ctx, CategoryLocations, func(ctx context.Context) (any, error) {
		return c.fetcher.ListLocations(ctx)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]topdesk.Location), nil
}

// Makes returns the cached make dropdown values.
func (c *Cache) Makes(ctx context.Context) ([]topdesk.DropdownEntry, error) {
	return c.dropdown(ctx, CategoryMakes, c.fetcher.ListMakes)
}

// Models returns the cached model dropdown values.
func (c *Cache) Models(ctx context.Context) ([]topdesk.DropdownEntry, error) {
	return c.dropdown(ctx, CategoryModels, c.fetcher.ListModels)
}

// DeviceTypes returns the cached computer-type dropdown values.
func (c *Cache) DeviceTypes(ctx context.Context) ([]topdesk.DropdownEntry, error) {
	return c.dropdown(ctx, CategoryDeviceTypes, c.fetcher.ListDeviceTypes)
}

// Templates returns the cached asset templates.
func (c *Cache) Templates(ctx context.Context) ([]topdesk.Template, error) {
	payload, err := c.get(ctx, CategoryTemplates, func(ctx context.Context) (any, error) {
		return c.fetcher.ListTemplates(ctx)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]topdesk.Template), nil
}

// StockRooms returns the cached stock room listing.
func (c *Cache) StockRooms(ctx context.Context) ([]topdesk.AssetRef, error) {
	payload, err := c.get(ctx, CategoryStockRooms, func(ctx context.Context) (any, error) {
		return c.fetcher.ListStockRooms(ctx)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]topdesk.AssetRef), nil
}

func (c *Cache) dropdown(ctx context.Context, cat Category, fetch func(context.Context) ([]topdesk.DropdownEntry, error)) ([]topdesk.DropdownEntry, error) {
	payload, err := c.get(ctx, cat, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]topdesk.DropdownEntry), nil
}

func (c *Cache) get(ctx context.Context, cat Category, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	cached, ok := c.entries[cat]
	c.mu.Unlock()

	if ok && c.now().Sub(cached.fetchedAt) < c.ttl {
		metrics.DirectoryCacheHits.WithLabelValues(string(cat)).Inc()
		return cached.payload, nil
	}

	metrics.DirectoryCacheMisses.WithLabelValues(string(cat)).Inc()
	payload, err := fetch(ctx)
	if err != nil {
		// Failed fetches never populate the cache.
		return nil, err
	}

	c.mu.Lock()
	c.entries[cat] = entry{payload: payload, fetchedAt: c.now()}
	c.mu.Unlock()

	c.log.Debug().Str("category", string(cat)).Msg("directory cache refreshed")
	return payload, nil
}
