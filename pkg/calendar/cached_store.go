package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedStore memoizes ListEvents for a short window. Any write flushes it.
type CachedStore struct {
	inner EventStore
	cache *cache.Cache
}

func NewCachedStore(inner EventStore, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedStore) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	key := fmt.Sprintf("events_%s_%s", from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]Event), nil
	}

	events, err := c.inner.ListEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, events)
	return events, nil
}

func (c *CachedStore) InsertEvent(ctx context.Context, event Event) (Event, error) {
	defer c.cache.Flush()
	return c.inner.InsertEvent(ctx, event)
}

func (c *CachedStore) UpdateStatus(ctx context.Context, id, status string) (Event, error) {
	defer c.cache.Flush()
	return c.inner.UpdateStatus(ctx, id, status)
}

func (c *CachedStore) DeleteEvent(ctx context.Context, id string) error {
	defer c.cache.Flush()
	return c.inner.DeleteEvent(ctx, id)
}
