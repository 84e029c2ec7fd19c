package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "snap", []byte("v1"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "forever", []byte("v2"), 0))

	b, ok, err := c.GetBytes(ctx, "snap")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), b)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.GetBytes(ctx, "snap")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()

	type snap struct {
		Regime string  `json:"regime"`
		VIX    float64 `json:"vix"`
	}
	require.NoError(t, SetJSON(ctx, c, "k", snap{Regime: "bull", VIX: 14}, time.Hour))

	var got snap
	ok, err := GetJSON(ctx, c, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, snap{Regime: "bull", VIX: 14}, got)

	require.NoError(t, c.SetBytes(ctx, "corrupt", []byte("{"), time.Hour))
	ok, err = GetJSON(ctx, c, "corrupt", &got)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = GetJSON(ctx, c, "missing", &got)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, SetJSON(ctx, c, "bad", make(chan int), time.Hour))
}
