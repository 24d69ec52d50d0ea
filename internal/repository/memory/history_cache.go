package memory

import (
	"fmt"

	"twinai-be/pkg/store"

	lru "github.com/hashicorp/golang-lru/v2"
)

// HistoryCache is the in-process history tier. Lookups use Peek, so only
// writes affect eviction order and the least recently written session goes first.
type HistoryCache struct {
	cache *lru.Cache[string, []store.Message]
}

func NewHistoryCache(size int) (*HistoryCache, error) {
	c, err := lru.New[string, []store.Message](size)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}
	return &HistoryCache{cache: c}, nil
}

func (c *HistoryCache) Get(sessionID string) ([]store.Message, bool) {
	msgs, ok := c.cache.Peek(sessionID)
	if !ok {
		return nil, false
	}
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	return out, true
}

func (c *HistoryCache) Set(sessionID string, msgs []store.Message) {
	stored := make([]store.Message, len(msgs))
	copy(stored, msgs)
	c.cache.Add(sessionID, stored)
}

func (c *HistoryCache) Fill(sessionID string, msgs []store.Message) bool {
	stored := make([]store.Message, len(msgs))
	copy(stored, msgs)
	present, _ := c.cache.ContainsOrAdd(sessionID, stored)
	return !present
}

func (c *HistoryCache) Delete(sessionID string) {
	c.cache.Remove(sessionID)
}

func (c *HistoryCache) Len() int {
	return c.cache.Len()
}
