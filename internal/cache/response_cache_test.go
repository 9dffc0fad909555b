package cache

import (
	"testing"
	"time"

	"github.com/roamkit/roamkit/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCache(ttlSeconds int) *ResponseCache {
	return NewResponseCache(Params{
		Cfg: config.Config{
			Cache: config.CacheConfig{
				Enabled:      true,
				TTLSeconds:   ttlSeconds,
				MaxBodyBytes: 1 << 20,
			},
		},
		Log: zap.NewNop(),
	})
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(300)
	key := Key("7001:7002", "GET", "/widget/countries?apikey=x")

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, CachedResponse{Status: 200, ContentType: "application/json", Body: []byte(`["Iceland"]`)})

	got, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, []byte(`["Iceland"]`), got.Body)
	assert.Equal(t, "application/json", got.ContentType)
}

func TestSetIgnoresNon200(t *testing.T) {
	c := newTestCache(300)
	key := Key("7001:7002", "GET", "/widget/countries")

	c.Set(key, CachedResponse{Status: 404, Body: []byte("not found")})
	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, CachedResponse{Status: 500, Body: []byte("boom")})
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestSetIgnoresOversizedBody(t *testing.T) {
	c := NewResponseCache(Params{
		Cfg: config.Config{
			Cache: config.CacheConfig{Enabled: true, TTLSeconds: 300, MaxBodyBytes: 4},
		},
		Log: zap.NewNop(),
	})
	key := Key("7001:7002", "GET", "/widget/countries")

	c.Set(key, CachedResponse{Status: 200, Body: []byte("too large")})
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestDisabledCacheNeverStores(t *testing.T) {
	c := NewResponseCache(Params{
		Cfg: config.Config{Cache: config.CacheConfig{Enabled: false, TTLSeconds: 300}},
		Log: zap.NewNop(),
	})
	key := Key("7001:7002", "GET", "/widget/countries")

	c.Set(key, CachedResponse{Status: 200, Body: []byte("x")})
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestKeyIsolatesCredentialScopes(t *testing.T) {
	c := newTestCache(300)
	c.Set(Key("7001:7002", "GET", "/widget/countries"), CachedResponse{Status: 200, Body: []byte(`["Iceland"]`)})

	_, ok := c.Get(Key("8001:8002", "GET", "/widget/countries"))
	assert.False(t, ok)

	got, ok := c.Get(Key("7001:7002", "GET", "/widget/countries"))
	assert.True(t, ok)
	assert.Equal(t, []byte(`["Iceland"]`), got.Body)
}

func TestFlushPattern(t *testing.T) {
	c := newTestCache(300)
	c.Set(Key("7001:7002", "GET", "/widget/countries"), CachedResponse{Status: 200, Body: []byte("a")})
	c.Set(Key("7001:7002", "GET", "/widget/countries/Iceland/places"), CachedResponse{Status: 200, Body: []byte("b")})
	c.Set(Key("7001:7002", "GET", "/widget/config"), CachedResponse{Status: 200, Body: []byte("c")})

	c.Set(Key("8001:8002", "GET", "/widget/countries"), CachedResponse{Status: 200, Body: []byte("d")})

	removed := c.Flush("7001:")
	assert.Equal(t, 3, removed)

	_, ok := c.Get(Key("8001:8002", "GET", "/widget/countries"))
	assert.True(t, ok)

	_, ok = c.Get(Key("7001:7002", "GET", "/widget/countries"))
	assert.False(t, ok)
	_, ok = c.Get(Key("7001:7002", "GET", "/widget/config"))
	assert.False(t, ok)
}

func TestFlushAll(t *testing.T) {
	c := newTestCache(300)
	c.Set(Key("7001:7002", "GET", "/a"), CachedResponse{Status: 200, Body: []byte("a")})
	c.Set(Key("7001:7002", "GET", "/b"), CachedResponse{Status: 200, Body: []byte("b")})

	removed := c.Flush("")
	assert.Equal(t, 2, removed)
	_, ok := c.Get(Key("7001:7002", "GET", "/a"))
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(300)
	c.ttl = 10 * time.Millisecond
	key := Key("7001:7002", "GET", "/widget/countries")

	c.Set(key, CachedResponse{Status: 200, Body: []byte("a")})
	_, ok := c.Get(key)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestSweepRemovesExpired(t *testing.T) {
	store := NewTTLCache[string, string]()
	store.Set("live", "v", time.Minute)
	store.Set("dead", "v", time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}
