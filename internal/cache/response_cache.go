package cache

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/roamkit/roamkit/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CachedResponse is a stored handler output, replayed on hit.
type CachedResponse struct {
	Status      int
	ContentType string
	Body        []byte
	StoredAt    time.Time
}

// ResponseCache holds successful GET responses keyed by credential scope,
// method and URL. Concurrent misses for the same cold key are not coalesced;
// each populates the cache independently.
type ResponseCache struct {
	log          *zap.Logger
	store        *TTLCache[string, CachedResponse]
	ttl          time.Duration
	maxBodyBytes int
	enabled      bool
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func NewResponseCache(p Params) *ResponseCache {
	return &ResponseCache{
		log:          p.Log.Named("cache.response"),
		store:        NewTTLCache[string, CachedResponse](),
		ttl:          time.Duration(p.Cfg.Cache.TTLSeconds) * time.Second,
		maxBodyBytes: p.Cfg.Cache.MaxBodyBytes,
		enabled:      p.Cfg.Cache.Enabled,
	}
}

// Key builds the canonical cache key for a request. The scope identifies the
// authenticated credential; entries are never shared across tenants or keys.
func Key(scope, method, url string) string {
	return scope + ":" + method + ":" + url
}

func (c *ResponseCache) Enabled() bool {
	return c != nil && c.enabled
}

func (c *ResponseCache) Get(key string) (CachedResponse, bool) {
	if !c.Enabled() {
		return CachedResponse{}, false
	}
	return c.store.Get(key)
}

// Set stores a response. Only 200s are kept; everything else is ignored.
func (c *ResponseCache) Set(key string, resp CachedResponse) {
	if !c.Enabled() || resp.Status != http.StatusOK {
		return
	}
	if c.maxBodyBytes > 0 && len(resp.Body) > c.maxBodyBytes {
		return
	}
	resp.StoredAt = time.Now().UTC()
	c.store.Set(key, resp, c.ttl)
}

// Flush removes every key containing pattern as a substring. An empty
// pattern clears the whole cache.
func (c *ResponseCache) Flush(pattern string) int {
	if c == nil {
		return 0
	}
	if pattern == "" {
		n := c.store.Len()
		c.store.Clear()
		return n
	}
	return c.store.DeleteFunc(func(key string) bool {
		return strings.Contains(key, pattern)
	})
}

// StartSweeper runs a periodic sweep of expired entries until stop is called.
func (c *ResponseCache) StartSweeper(lc fx.Lifecycle, interval time.Duration) {
	if !c.Enabled() || interval <= 0 {
		return
	}

	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if removed := c.store.Sweep(); removed > 0 {
							c.log.Debug("swept expired responses", zap.Int("removed", removed))
						}
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})
}
