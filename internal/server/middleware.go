package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	"github.com/roamkit/roamkit/internal/tenantctx"
)

const contextAPIKey = "api_key"

// AuthRequired authenticates dashboard requests with a bearer token. The
// stored token version is re-read on every request; claims alone are never
// trusted.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken := bearerToken(c)
		if rawToken == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		tenant, rejection, err := s.gate.VerifyToken(c.Request.Context(), rawToken)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if rejection != nil {
			s.metrics.RecordAdmissionDenied(rejection.Code)
			AbortWithRejection(c, rejection)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenant.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SubscriptionRequired runs after AuthRequired on routes that need a live
// subscription.
func (s *Server) SubscriptionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		rejection, err := s.gate.Run(c.Request.Context(), s.gate.RequireLiveSubscription(tenantID))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if rejection != nil {
			AbortWithRejection(c, rejection)
			return
		}
		c.Next()
	}
}

// APIKeyRequired authenticates widget and public API requests. The key comes
// from the X-API-Key header or the apikey query parameter; the origin is
// checked against the key's allow-list.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if rawKey == "" {
			rawKey = strings.TrimSpace(c.Query("apikey"))
		}
		if rawKey == "" {
			s.metrics.RecordAdmissionDenied(CodeMissingAPIKey)
			AbortWithError(c, ErrMissingAPIKey)
			return
		}

		key, err := s.apiKeySvc.Validate(c.Request.Context(), rawKey, requestOrigin(c))
		if err != nil {
			s.recordValidateDenied(err)
			AbortWithError(c, err)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), key.TenantID)
		ctx = tenantctx.WithAPIKeyID(ctx, key.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextAPIKey, key)
		c.Next()
	}
}

// ConsumeOpening runs after APIKeyRequired on widget routes. Every request
// reaching this point counts against the monthly openings quota, whatever
// the classifier later decides.
func (s *Server) ConsumeOpening() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := apiKeyFromContext(c)
		if key == nil {
			AbortWithError(c, ErrMissingAPIKey)
			return
		}

		rejection, err := s.gate.Run(c.Request.Context(), s.gate.ConsumeOpening(key))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if rejection != nil {
			AbortWithRejection(c, rejection)
			return
		}
		c.Next()
	}
}

// RateLimit throttles public API requests per API key and reports the bucket
// state in X-RateLimit headers.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.apiLimiter.Enabled() {
			c.Next()
			return
		}

		key := apiKeyFromContext(c)
		if key == nil {
			AbortWithError(c, ErrMissingAPIKey)
			return
		}

		result, err := s.apiLimiter.Allow(c.Request.Context(), key.ID.String())
		if err != nil {
			// Redis being down must not take the API down with it.
			s.log.Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			s.metrics.RecordRateLimitDenied(c.FullPath())
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func (s *Server) recordValidateDenied(err error) {
	switch {
	case err == nil:
		return
	case err == apikeydomain.ErrKeyNotFound:
		s.metrics.RecordAdmissionDenied(CodeInvalidAPIKey)
	case err == apikeydomain.ErrKeyInactive:
		s.metrics.RecordAdmissionDenied(CodeInactiveAPIKey)
	case err == apikeydomain.ErrOriginNotAllowed:
		s.metrics.RecordAdmissionDenied(CodeUnauthorizedDomain)
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func requestOrigin(c *gin.Context) string {
	if origin := strings.TrimSpace(c.GetHeader("Origin")); origin != "" {
		return origin
	}
	return strings.TrimSpace(c.GetHeader("Referer"))
}

func apiKeyFromContext(c *gin.Context) *apikeydomain.APIKey {
	value, ok := c.Get(contextAPIKey)
	if !ok {
		return nil
	}
	key, ok := value.(*apikeydomain.APIKey)
	if !ok {
		return nil
	}
	return key
}
