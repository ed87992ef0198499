package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientIsEmptyCache(t *testing.T) {
	var c *Client
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute)
	c.Delete(ctx, "k")

	assert.Nil(t, c.Get(ctx, "k"))
	var dst map[string]int
	assert.False(t, c.GetJSON(ctx, "k", &dst))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestUnreachableRedisFailsSafe(t *testing.T) {
	// nothing listens on port 1
	c := New("127.0.0.1:1", "", 0)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Nil(t, c.Get(ctx, "k"))
	assert.Error(t, c.Ping(ctx))
}

func TestClientRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	c.Set(ctx, "raw", []byte("v"), time.Minute)
	assert.Equal(t, []byte("v"), c.Get(ctx, "raw"))

	type entry struct {
		Path string `json:"path"`
	}
	c.SetJSON(ctx, "json", entry{Path: "a.md"}, time.Minute)
	var got entry
	require.True(t, c.GetJSON(ctx, "json", &got))
	assert.Equal(t, "a.md", got.Path)

	c.Delete(ctx, "raw", "json")
	assert.False(t, mr.Exists("raw"))
	assert.False(t, c.GetJSON(ctx, "json", &got))
}

func TestClientTTLAndCorruptEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)
	assert.Nil(t, c.Get(ctx, "k"))

	require.NoError(t, mr.Set("bad", "{not json"))
	var dst map[string]int
	assert.False(t, c.GetJSON(ctx, "bad", &dst))
}
