package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/types"
)

// DefaultMetadataTTL is how long a metadata entry stays cached
const DefaultMetadataTTL = 6 * time.Hour

const keyPrefix = "memescan:meta"

// Cache lookup results, used as metric labels
const (
	LookupHit      = "hit"
	LookupMismatch = "mismatch"
	LookupMiss     = "miss"
	LookupError    = "error"
)

// MetadataEntry is the cached value. Either Metadata is set or Mismatch is true.
type MetadataEntry struct {
	Metadata         *types.TokenMetadata `json:"metadata,omitempty"`
	Mismatch         bool                 `json:"mismatch,omitempty"`
	MismatchPlatform string               `json:"mismatch_platform,omitempty"`
	CachedAt         time.Time            `json:"cached_at"`
}

// MetadataCache stores resolved token metadata, and negative platform results, per chain
type MetadataCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewMetadataCache creates a metadata cache. A non-positive ttl uses DefaultMetadataTTL.
func NewMetadataCache(redis *RedisCache, ttl time.Duration) *MetadataCache {
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	return &MetadataCache{redis: redis, ttl: ttl}
}

// Key generates the cache key for a listing on a chain.
// Format: memescan:meta:<chain>:<id>
func (c *MetadataCache) Key(chain string, id int64) string {
	return strings.Join([]string{keyPrefix, strings.ToLower(chain), strconv.FormatInt(id, 10)}, ":")
}

// Get looks up an entry. found is false on a miss.
func (c *MetadataCache) Get(ctx context.Context, chain string, id int64) (entry MetadataEntry, found bool, err error) {
	data, err := c.redis.Get(ctx, c.Key(chain, id))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return MetadataEntry{}, false, nil
		}
		return MetadataEntry{}, false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return MetadataEntry{}, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return entry, true, nil
}

// PutMetadata caches resolved metadata
func (c *MetadataCache) PutMetadata(ctx context.Context, chain string, id int64, meta *types.TokenMetadata) error {
	return c.put(ctx, chain, id, MetadataEntry{Metadata: meta, CachedAt: time.Now().UTC()})
}

// PutMismatch caches the fact that a listing is hosted on another platform
func (c *MetadataCache) PutMismatch(ctx context.Context, chain string, id int64, platform string) error {
	return c.put(ctx, chain, id, MetadataEntry{Mismatch: true, MismatchPlatform: platform, CachedAt: time.Now().UTC()})
}

func (c *MetadataCache) put(ctx context.Context, chain string, id int64, entry MetadataEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.redis.Set(ctx, c.Key(chain, id), data, c.ttl)
}

// Invalidate removes the entry for a listing
func (c *MetadataCache) Invalidate(ctx context.Context, chain string, id int64) error {
	return c.redis.Del(ctx, c.Key(chain, id))
}

// ListingsProvider is the listings client being decorated
type ListingsProvider interface {
	FetchSnapshot(ctx context.Context) ([]types.MarketSnapshotItem, error)
	FetchMetadata(ctx context.Context, id int64, symbol string) (*types.TokenMetadata, error)
}

// CachedListings serves metadata from the cache and falls back to the provider.
// Snapshots are never cached. Only definite answers are stored: resolved metadata
// and platform mismatches. Transport failures and NotFound always go upstream again.
// A failing cache never fails a lookup.
type CachedListings struct {
	inner    ListingsProvider
	cache    *MetadataCache
	chain    string
	onLookup func(result string)
}

// NewCachedListings wraps inner. onLookup may be nil.
func NewCachedListings(inner ListingsProvider, cache *MetadataCache, chain string, onLookup func(result string)) *CachedListings {
	return &CachedListings{
		inner:    inner,
		cache:    cache,
		chain:    chain,
		onLookup: onLookup,
	}
}

// FetchSnapshot delegates to the provider
func (c *CachedListings) FetchSnapshot(ctx context.Context) ([]types.MarketSnapshotItem, error) {
	return c.inner.FetchSnapshot(ctx)
}

// FetchMetadata returns cached metadata or fetches and caches it
func (c *CachedListings) FetchMetadata(ctx context.Context, id int64, symbol string) (*types.TokenMetadata, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"symbol": symbol,
		"id":     id,
	})

	entry, found, err := c.cache.Get(ctx, c.chain, id)
	switch {
	case err != nil:
		c.observe(LookupError)
		logger.WithError(err).Warn("Metadata cache lookup failed")
	case found && entry.Mismatch:
		c.observe(LookupMismatch)
		return nil, scanerrors.NewPlatformMismatchError(symbol, entry.MismatchPlatform, c.chain)
	case found && entry.Metadata != nil:
		c.observe(LookupHit)
		meta := *entry.Metadata
		return &meta, nil
	default:
		c.observe(LookupMiss)
	}

	meta, err := c.inner.FetchMetadata(ctx, id, symbol)
	if err != nil {
		if errors.Is(err, scanerrors.ErrPlatformMismatch) {
			platform, _ := scanerrors.Categorize(err).Details["platform"].(string)
			if perr := c.cache.PutMismatch(ctx, c.chain, id, platform); perr != nil {
				logger.WithError(perr).Warn("Failed to cache platform mismatch")
			}
		}
		return nil, err
	}

	if perr := c.cache.PutMetadata(ctx, c.chain, id, meta); perr != nil {
		logger.WithError(perr).Warn("Failed to cache metadata")
	}
	return meta, nil
}

func (c *CachedListings) observe(result string) {
	if c.onLookup != nil {
		c.onLookup(result)
	}
}
