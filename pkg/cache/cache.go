// Package cache provides the best-effort read cache in front of the
// availability engine. Entries are keyed by a deterministic hash of the
// operation name and the canonical JSON of its query, with the resource id
// kept in clear so mutations can invalidate by pattern. Cache faults never
// reach callers; after enough consecutive failures the cache turns itself
// off for the remainder of the process.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"lodgeworks/pkg/logger"
)

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache: key not found")

const keyPrefix = "avail"

// Store is the narrow cache-backend contract. The production implementation
// is Redis; tests use an in-memory fake.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) (int, error)
	AddToTag(ctx context.Context, tag, key string, ttl time.Duration) error
	TagMembers(ctx context.Context, tag string) ([]string, error)
	DeleteTag(ctx context.Context, tag string, keys []string) error
	Ping(ctx context.Context) error
}

// Key builds the cache key for one query shape. The query must be a
// stable, serializable record; two equal queries always produce the same
// key across restarts.
func Key(operation, resourceID string, query any) string {
	payload, err := json.Marshal(query)
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v", query))
	}
	sum := sha1.Sum(append([]byte(operation+":"), payload...))
	return fmt.Sprintf("%s:%s:%s:%x", keyPrefix, resourceID, operation, sum)
}

// TagKey names the membership set for a tag.
func TagKey(tag string) string {
	return "tag:" + tag
}

// resourcePattern matches every cached key for one resource, whatever the
// operation or parameter hash.
func resourcePattern(resourceID string) string {
	return fmt.Sprintf("%s:%s:*", keyPrefix, resourceID)
}

// Counters is a snapshot of the cache's internal accounting.
type Counters struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Sets          int64 `json:"sets"`
	Errors        int64 `json:"errors"`
	Invalidations int64 `json:"invalidations"`
	Disabled      bool  `json:"disabled"`
}

type AvailabilityCache struct {
	store          Store
	log            *logger.Logger
	ttl            time.Duration
	tagTTL         time.Duration
	errorThreshold int64

	hits            atomic.Int64
	misses          atomic.Int64
	sets            atomic.Int64
	errs            atomic.Int64
	invalidations   atomic.Int64
	consecutiveErrs atomic.Int64
	disabled        atomic.Bool
}

type Options struct {
	TTL            time.Duration
	TagTTL         time.Duration
	ErrorThreshold int
}

func New(store Store, log *logger.Logger, opts Options) *AvailabilityCache {
	if opts.TTL <= 0 {
		opts.TTL = 300 * time.Second
	}
	if opts.TagTTL <= 0 {
		opts.TagTTL = 24 * time.Hour
	}
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = 5
	}
	return &AvailabilityCache{
		store:          store,
		log:            log,
		ttl:            opts.TTL,
		tagTTL:         opts.TagTTL,
		errorThreshold: int64(opts.ErrorThreshold),
	}
}

// Enabled reports whether the cache is still serving lookups.
func (c *AvailabilityCache) Enabled() bool {
	return c.store != nil && !c.disabled.Load()
}

// GetJSON looks up key and decodes it into dest. It returns true only on a
// usable hit; every failure path counts and degrades to a miss.
func (c *AvailabilityCache) GetJSON(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			c.misses.Add(1)
			c.consecutiveErrs.Store(0)
			return false
		}
		c.onError("get", key, err)
		return false
	}
	c.consecutiveErrs.Store(0)

	if err := json.Unmarshal(data, dest); err != nil {
		// Corrupt entry; treat as miss and let the next set overwrite it.
		c.log.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		c.misses.Add(1)
		return false
	}

	c.hits.Add(1)
	return true
}

// SetJSON stores v under key with the configured TTL and registers the key
// under each tag.
func (c *AvailabilityCache) SetJSON(ctx context.Context, key string, v any, tags ...string) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("Failed to encode cache value", "key", key, "error", err)
		return
	}

	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.onError("set", key, err)
		return
	}
	c.consecutiveErrs.Store(0)
	c.sets.Add(1)

	for _, tag := range tags {
		if err := c.store.AddToTag(ctx, TagKey(tag), key, c.tagTTL); err != nil {
			c.onError("tag", key, err)
			return
		}
	}
}

// InvalidateResource drops every cached answer that references the resource.
// Called on every booking or reservation mutation.
func (c *AvailabilityCache) InvalidateResource(ctx context.Context, resourceID string) {
	if !c.Enabled() {
		return
	}

	deleted, err := c.store.DeletePattern(ctx, resourcePattern(resourceID))
	if err != nil {
		c.onError("invalidate", resourceID, err)
		return
	}
	c.consecutiveErrs.Store(0)
	c.invalidations.Add(int64(deleted))
	c.log.Debug("Invalidated cached availability", "resource_id", resourceID, "deleted", deleted)
}

// InvalidateTag drops every key registered under the tag and the tag's
// membership record itself.
func (c *AvailabilityCache) InvalidateTag(ctx context.Context, tag string) {
	if !c.Enabled() {
		return
	}

	tagKey := TagKey(tag)
	members, err := c.store.TagMembers(ctx, tagKey)
	if err != nil {
		c.onError("tag_members", tagKey, err)
		return
	}
	if err := c.store.DeleteTag(ctx, tagKey, members); err != nil {
		c.onError("tag_delete", tagKey, err)
		return
	}
	c.consecutiveErrs.Store(0)
	c.invalidations.Add(int64(len(members)))
	c.log.Debug("Invalidated cache tag", "tag", tag, "deleted", len(members))
}

func (c *AvailabilityCache) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("cache: no store configured")
	}
	return c.store.Ping(ctx)
}

func (c *AvailabilityCache) Counters() Counters {
	return Counters{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Errors:        c.errs.Load(),
		Invalidations: c.invalidations.Load(),
		Disabled:      c.disabled.Load(),
	}
}

func (c *AvailabilityCache) onError(op, key string, err error) {
	c.errs.Add(1)
	failures := c.consecutiveErrs.Add(1)
	c.log.Warn("Cache operation failed, degrading to pass-through",
		"op", op,
		"key", key,
		"consecutive_failures", failures,
		"error", err,
	)
	if failures >= c.errorThreshold && c.disabled.CompareAndSwap(false, true) {
		c.log.Error("Cache disabled for process lifetime after repeated failures",
			"threshold", c.errorThreshold,
		)
	}
}
