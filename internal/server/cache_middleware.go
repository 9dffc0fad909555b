package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamkit/roamkit/internal/cache"
	"github.com/roamkit/roamkit/internal/tenantctx"
)

const headerDataCache = "X-Data-Cache"

type bufferingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bufferingWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *bufferingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheResponse serves stored GET responses and captures fresh ones. Entries
// are scoped to the authenticated credential; only a 200 result is stored,
// and concurrent cold misses each populate independently.
func (s *Server) CacheResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.respCache.Enabled() || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cache.Key(cacheScope(c), c.Request.Method, c.Request.URL.String())
		if stored, ok := s.respCache.Get(key); ok {
			s.metrics.RecordCacheHit()
			c.Header(headerDataCache, "HIT")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		s.metrics.RecordCacheMiss()
		c.Header(headerDataCache, "MISS")

		writer := &bufferingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()
		c.Writer = writer.ResponseWriter

		// An aborted handler may not have written yet; its error body is
		// rendered by the error middleware after this one unwinds, while
		// the writer still reports gin's default 200. Never store those.
		if !writer.Written() || len(c.Errors) > 0 {
			return
		}

		s.respCache.Set(key, cache.CachedResponse{
			Status:      writer.Status(),
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		})
	}
}

// cacheScope derives the per-credential cache key prefix. Both IDs are kept
// so a tenant-wide flush and per-key entries work off the same string.
func cacheScope(c *gin.Context) string {
	tenantID, _ := tenantctx.TenantIDFromContext(c.Request.Context())
	keyID, _ := tenantctx.APIKeyIDFromContext(c.Request.Context())
	return tenantID.String() + ":" + keyID.String()
}
