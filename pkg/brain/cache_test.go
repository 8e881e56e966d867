package brain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetPutRoundTrip(t *testing.T) {
	c := newMemoryCache()
	ctx := context.Background()

	_, ok := c.get(ctx, "run1", "key1")
	assert.False(t, ok)

	c.put(ctx, "run1", "key1", &Response{OK: true, Text: "hello"})
	got, ok := c.get(ctx, "run1", "key1")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Text)
}

func TestMemoryCache_IsolatedByRun(t *testing.T) {
	c := newMemoryCache()
	ctx := context.Background()
	c.put(ctx, "run1", "key1", &Response{OK: true, Text: "run1 value"})

	_, ok := c.get(ctx, "run2", "key1")
	assert.False(t, ok)
}

func TestCacheKey_StableForIdenticalRequests(t *testing.T) {
	req := &Request{
		Messages:    userMsg("hello"),
		Temperature: 0.6,
		TopP:        0.9,
	}
	k1 := cacheKey("base-model", req)
	k2 := cacheKey("base-model", req)
	assert.Equal(t, k1, k2)
}

func TestCacheKey_ChangesWithAnyFieldInCompositeKey(t *testing.T) {
	base := &Request{Messages: userMsg("hello"), Temperature: 0.6, TopP: 0.9}
	diffTemp := &Request{Messages: userMsg("hello"), Temperature: 0.7, TopP: 0.9}
	diffModel := base

	k1 := cacheKey("base-model", base)
	k2 := cacheKey("base-model", diffTemp)
	k3 := cacheKey("fast-model", diffModel)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
