package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"lodgeworks/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	tags    map[string]map[string]struct{}
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: map[string][]byte{},
		tags:    map[string]map[string]struct{}{},
	}
}

var errFakeDown = errors.New("fake store down")

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errFakeDown
	}
	data, ok := f.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return data, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeDown
	}
	f.entries[key] = value
	return nil
}

func (f *fakeStore) DeletePattern(_ context.Context, pattern string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, errFakeDown
	}
	deleted := 0
	for key := range f.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(f.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) AddToTag(_ context.Context, tag, key string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeDown
	}
	if f.tags[tag] == nil {
		f.tags[tag] = map[string]struct{}{}
	}
	f.tags[tag][key] = struct{}{}
	return nil
}

func (f *fakeStore) TagMembers(_ context.Context, tag string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errFakeDown
	}
	var members []string
	for key := range f.tags[tag] {
		members = append(members, key)
	}
	return members, nil
}

func (f *fakeStore) DeleteTag(_ context.Context, tag string, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeDown
	}
	for _, key := range keys {
		delete(f.entries, key)
	}
	delete(f.tags, tag)
	return nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	if f.failAll {
		return errFakeDown
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.LevelError, Service: "test"})
}

type payload struct {
	Value string `json:"value"`
}

func TestKey_Deterministic(t *testing.T) {
	type query struct {
		ResourceID string `json:"resource_id"`
		Nights     int    `json:"nights"`
	}
	a := Key("check", "r1", query{ResourceID: "r1", Nights: 3})
	b := Key("check", "r1", query{ResourceID: "r1", Nights: 3})
	c := Key("check", "r1", query{ResourceID: "r1", Nights: 4})
	d := Key("calendar", "r1", query{ResourceID: "r1", Nights: 3})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, "avail:r1:check:")
}

func TestGetSet_RoundTrip(t *testing.T) {
	store := newFakeStore()
	c := New(store, testLogger(), Options{})
	ctx := context.Background()

	key := Key("check", "r1", payload{Value: "q"})

	var out payload
	require.False(t, c.GetJSON(ctx, key, &out))

	c.SetJSON(ctx, key, payload{Value: "cached"})
	require.True(t, c.GetJSON(ctx, key, &out))
	assert.Equal(t, "cached", out.Value)

	counters := c.Counters()
	assert.Equal(t, int64(1), counters.Hits)
	assert.Equal(t, int64(1), counters.Misses)
	assert.Equal(t, int64(1), counters.Sets)
}

func TestInvalidateResource_OnlyAffectedResource(t *testing.T) {
	store := newFakeStore()
	c := New(store, testLogger(), Options{})
	ctx := context.Background()

	keyR1 := Key("check", "r1", payload{Value: "a"})
	keyR2 := Key("check", "r2", payload{Value: "b"})
	c.SetJSON(ctx, keyR1, payload{Value: "a"})
	c.SetJSON(ctx, keyR2, payload{Value: "b"})

	c.InvalidateResource(ctx, "r1")

	var out payload
	assert.False(t, c.GetJSON(ctx, keyR1, &out))
	assert.True(t, c.GetJSON(ctx, keyR2, &out))
}

func TestInvalidateTag(t *testing.T) {
	store := newFakeStore()
	c := New(store, testLogger(), Options{})
	ctx := context.Background()

	key1 := Key("check", "r1", payload{Value: "1"})
	key2 := Key("calendar", "r1", payload{Value: "2"})
	c.SetJSON(ctx, key1, payload{Value: "1"}, "resource:r1")
	c.SetJSON(ctx, key2, payload{Value: "2"}, "resource:r1")

	c.InvalidateTag(ctx, "resource:r1")

	var out payload
	assert.False(t, c.GetJSON(ctx, key1, &out))
	assert.False(t, c.GetJSON(ctx, key2, &out))
	_, tagExists := store.tags[TagKey("resource:r1")]
	assert.False(t, tagExists)
}

func TestDegradation_DisablesAfterThreshold(t *testing.T) {
	store := newFakeStore()
	c := New(store, testLogger(), Options{ErrorThreshold: 3})
	ctx := context.Background()

	store.failAll = true
	var out payload
	for i := 0; i < 3; i++ {
		// Errors degrade to a miss, never to a caller-visible failure.
		assert.False(t, c.GetJSON(ctx, "avail:r1:check:x", &out))
	}

	assert.False(t, c.Enabled())
	assert.True(t, c.Counters().Disabled)

	// Once disabled, a recovered store is irrelevant for this process.
	store.failAll = false
	c.SetJSON(ctx, "avail:r1:check:x", payload{Value: "late"})
	assert.False(t, c.GetJSON(ctx, "avail:r1:check:x", &out))
}

func TestDegradation_SuccessResetsConsecutiveCount(t *testing.T) {
	store := newFakeStore()
	c := New(store, testLogger(), Options{ErrorThreshold: 3})
	ctx := context.Background()

	var out payload
	store.failAll = true
	assert.False(t, c.GetJSON(ctx, "k", &out))
	assert.False(t, c.GetJSON(ctx, "k", &out))

	store.failAll = false
	c.SetJSON(ctx, "k", payload{Value: "ok"})

	store.failAll = true
	assert.False(t, c.GetJSON(ctx, "k", &out))
	assert.True(t, c.Enabled(), "two error bursts below threshold must not disable the cache")
}

func TestNilStore_IsPassThrough(t *testing.T) {
	c := New(nil, testLogger(), Options{})
	ctx := context.Background()

	var out payload
	assert.False(t, c.Enabled())
	assert.False(t, c.GetJSON(ctx, "k", &out))
	c.SetJSON(ctx, "k", payload{Value: "x"})
	c.InvalidateResource(ctx, "r1")
}
