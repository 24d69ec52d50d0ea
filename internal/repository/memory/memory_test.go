package memory

import (
	"fmt"
	"testing"
	"time"

	"twinai-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCacheEvictsLeastRecentlyWritten(t *testing.T) {
	c, err := NewHistoryCache(3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("s%d", i), []store.Message{{Content: "hi"}})
	}

	// reads must not refresh s0
	_, ok := c.Get("s0")
	require.True(t, ok)

	c.Set("s3", nil)

	_, ok = c.Get("s0")
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestHistoryCacheReturnsCopies(t *testing.T) {
	c, err := NewHistoryCache(10)
	require.NoError(t, err)

	msgs := []store.Message{{Content: "a"}}
	c.Set("s", msgs)
	msgs[0].Content = "mutated"

	got, ok := c.Get("s")
	require.True(t, ok)
	assert.Equal(t, "a", got[0].Content)

	got[0].Content = "again"
	again, _ := c.Get("s")
	assert.Equal(t, "a", again[0].Content)

	c.Delete("s")
	_, ok = c.Get("s")
	assert.False(t, ok)
}

func TestHistoryCacheFillKeepsNewerEntry(t *testing.T) {
	c, err := NewHistoryCache(10)
	require.NoError(t, err)

	assert.True(t, c.Fill("s", []store.Message{{Content: "m1"}}))

	c.Set("s", []store.Message{{Content: "m1"}, {Content: "m2"}})
	assert.False(t, c.Fill("s", []store.Message{{Content: "m1"}}))

	got, ok := c.Get("s")
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestIntentCacheExpires(t *testing.T) {
	c := NewIntentCache(50 * time.Millisecond)
	c.Set("hello", "chat")

	got, ok := c.Get("hello")
	require.True(t, ok)
	assert.Equal(t, "chat", got)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("hello")
	assert.False(t, ok)
}
