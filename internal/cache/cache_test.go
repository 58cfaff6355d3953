package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	c := New(true)
	defer c.Close()

	etag := c.Set("drill:1", []byte(`{"id":1}`), time.Minute)
	data, got, ok := c.Get("drill:1")
	assert.True(t, ok)
	assert.Equal(t, etag, got)
	assert.JSONEq(t, `{"id":1}`, string(data))

	c.Set("drill:1:attempts", []byte(`[]`), time.Minute)
	c.Set("drill:10", []byte(`{}`), time.Minute)
	c.Delete("drill:1")

	_, _, ok = c.Get("drill:1")
	assert.False(t, ok)
	_, _, ok = c.Get("drill:1:attempts")
	assert.False(t, ok)
	_, _, ok = c.Get("drill:10")
	assert.True(t, ok, "sibling keys sharing a textual prefix survive")
}

func TestCacheExpiry(t *testing.T) {
	c := New(true)
	defer c.Close()

	c.Set("k", []byte("v"), -time.Second)
	_, _, ok := c.Get("k")
	assert.False(t, ok)

	c.evict()
	assert.Equal(t, 0, c.Stats()["total_keys"])
}

func TestDisabledCache(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("v"), time.Minute)
	assert.Equal(t, ComputeETag([]byte("v")), etag)
	_, _, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))
	assert.False(t, CheckETagMatch("", etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch(`W/"other", `+etag, etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))
}
