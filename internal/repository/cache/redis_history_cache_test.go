package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"twinai-be/pkg/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryKey(t *testing.T) {
	assert.Equal(t, "chat:history:abc", HistoryKey("abc"))
}

// Runs against a live server only when REDIS_URL is set.
func TestRedisHistoryCacheRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisHistoryCache(client, time.Minute)
	sessionID := "test-" + uuid.NewString()

	_, found, err := c.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, found)

	msgs := []store.Message{
		{Role: store.RoleUser, Content: "hi", Type: store.TypeText, Timestamp: time.Now().UTC().Truncate(time.Millisecond)},
	}
	require.NoError(t, c.Set(ctx, sessionID, msgs))

	got, found, err := c.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, msgs[0].Content, got[0].Content)
	assert.True(t, msgs[0].Timestamp.Equal(got[0].Timestamp))

	filled, err := c.Fill(ctx, sessionID, nil)
	require.NoError(t, err)
	assert.False(t, filled)

	ttl, err := client.TTL(ctx, HistoryKey(sessionID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, sessionID))
	_, found, err = c.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, found)
}
