package server

import (
	"time"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/roamkit/roamkit/internal/usage/domain"
)

// RecordWidgetUsage captures a widget event once the response has been
// written. Persistence happens off the request path; a failed write never
// reaches the caller.
func (s *Server) RecordWidgetUsage(widgetType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		key := apiKeyFromContext(c)
		if key == nil {
			return
		}

		country := c.Param("country")
		if country == "" {
			country = c.Query("country")
		}
		place := c.Param("place")
		if place == "" {
			place = c.Query("place")
		}

		s.usageSvc.RecordWidget(c.Request.Context(), usagedomain.WidgetEvent{
			TenantID:       key.TenantID,
			APIKeyID:       key.ID,
			Domain:         key.Domain,
			WidgetType:     widgetType,
			CountryName:    country,
			PlaceName:      place,
			Referer:        c.GetHeader("Referer"),
			Internal:       c.Query("internal") == "true" || c.Query("action") == "navigate",
			ResponseTimeMs: time.Since(start).Milliseconds(),
		})
	}
}

// RecordAPIUsage logs public API calls with timing and final status.
func (s *Server) RecordAPIUsage() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		key := apiKeyFromContext(c)
		if key == nil {
			return
		}

		params := make(map[string]string)
		for name, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				params[name] = values[0]
			}
		}

		s.usageSvc.RecordAPI(c.Request.Context(), usagedomain.APIEvent{
			TenantID:    key.TenantID,
			APIKeyID:    key.ID,
			Endpoint:    c.FullPath(),
			Method:      c.Request.Method,
			Status:      c.Writer.Status(),
			DurationMs:  time.Since(start).Milliseconds(),
			QueryParams: params,
		})
	}
}
