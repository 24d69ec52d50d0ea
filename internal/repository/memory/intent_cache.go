package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// IntentCache remembers classification results keyed by the literal utterance.
type IntentCache struct {
	cache *cache.Cache
}

func NewIntentCache(ttl time.Duration) *IntentCache {
	return &IntentCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (c *IntentCache) Get(utterance string) (string, bool) {
	if x, found := c.cache.Get(utterance); found {
		return x.(string), true
	}
	return "", false
}

func (c *IntentCache) Set(utterance, intent string) {
	c.cache.Set(utterance, intent, cache.DefaultExpiration)
}

func (c *IntentCache) Len() int {
	return c.cache.ItemCount()
}
