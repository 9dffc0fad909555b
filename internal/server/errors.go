package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	authdomain "github.com/roamkit/roamkit/internal/auth/domain"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"github.com/roamkit/roamkit/internal/quota"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
	usagedomain "github.com/roamkit/roamkit/internal/usage/domain"
)

const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeMissingAPIKey      = "MISSING_API_KEY"
	CodeInvalidAPIKey      = "INVALID_API_KEY"
	CodeInactiveAPIKey     = "INACTIVE_API_KEY"
	CodeUnauthorizedDomain = "UNAUTHORIZED_DOMAIN"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternalError      = "INTERNAL_ERROR"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Current int64  `json:"current,omitempty"`
	Limit   int64  `json:"limit,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrMissingAPIKey  = errors.New("missing_api_key")
	ErrRateLimited    = errors.New("rate_limited")
	ErrNotFound       = errors.New("not_found")
)

// ErrorHandlingMiddleware turns the last recorded error into a structured
// JSON body once the handler chain has finished.
func (s *Server) ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := s.mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// AbortWithRejection short-circuits the request with an admission verdict.
func AbortWithRejection(c *gin.Context, rejection *quota.Rejection) {
	if rejection == nil {
		return
	}
	c.AbortWithStatusJSON(rejection.Status, errorResponse{Error: errorPayload{
		Code:    rejection.Code,
		Message: rejection.Message,
		Current: rejection.Current,
		Limit:   rejection.Limit,
	}})
}

func (s *Server) mapError(err error) (int, errorPayload) {
	var rejection *quota.Rejection
	if errors.As(err, &rejection) {
		return rejection.Status, errorPayload{
			Code:    rejection.Code,
			Message: rejection.Message,
			Current: rejection.Current,
			Limit:   rejection.Limit,
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, placedomain.ErrInvalidName),
		errors.Is(err, placedomain.ErrInvalidCountry),
		errors.Is(err, placedomain.ErrInvalidPlaceID),
		errors.Is(err, apikeydomain.ErrInvalidDomain),
		errors.Is(err, apikeydomain.ErrInvalidKeyID):
		return http.StatusBadRequest, errorPayload{
			Code:    CodeInvalidRequest,
			Message: "invalid request",
		}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Code:    CodeInvalidCredentials,
			Message: "invalid email or password",
		}
	case errors.Is(err, authdomain.ErrTokenExpired):
		return http.StatusUnauthorized, errorPayload{
			Code:    quota.CodeTokenExpired,
			Message: "session has expired, please log in again",
		}
	case errors.Is(err, authdomain.ErrTokenInvalidated):
		return http.StatusUnauthorized, errorPayload{
			Code:    quota.CodeTokenInvalidated,
			Message: "session has been revoked, please log in again",
		}
	case errors.Is(err, authdomain.ErrTokenInvalid),
		errors.Is(err, authdomain.ErrInvalidTenant),
		errors.Is(err, placedomain.ErrInvalidTenant),
		errors.Is(err, apikeydomain.ErrInvalidTenant),
		errors.Is(err, usagedomain.ErrInvalidTenant),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Code:    CodeUnauthorized,
			Message: "unauthorized",
		}
	case errors.Is(err, ErrMissingAPIKey):
		return http.StatusUnauthorized, errorPayload{
			Code:    CodeMissingAPIKey,
			Message: "api key is required",
		}
	case errors.Is(err, apikeydomain.ErrKeyNotFound):
		return http.StatusUnauthorized, errorPayload{
			Code:    CodeInvalidAPIKey,
			Message: "invalid api key",
		}
	case errors.Is(err, apikeydomain.ErrKeyInactive):
		return http.StatusUnauthorized, errorPayload{
			Code:    CodeInactiveAPIKey,
			Message: "api key has been revoked",
		}
	case errors.Is(err, apikeydomain.ErrOriginNotAllowed):
		return http.StatusForbidden, errorPayload{
			Code:    CodeUnauthorizedDomain,
			Message: "request origin is not authorized for this api key",
		}
	case errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrNotSubscribed):
		return http.StatusForbidden, errorPayload{
			Code:    quota.CodeSubscriptionRequired,
			Message: "an active subscription is required",
		}
	case errors.Is(err, subscriptiondomain.ErrOpeningsLimitReached):
		return http.StatusTooManyRequests, errorPayload{
			Code:    quota.CodeOpeningsLimitReached,
			Message: "monthly openings limit reached",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Code:    CodeRateLimited,
			Message: "too many requests",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, placedomain.ErrNotFound),
		errors.Is(err, apikeydomain.ErrNotFound),
		errors.Is(err, tenantdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Code:    CodeNotFound,
			Message: "not found",
		}
	default:
		payload := errorPayload{
			Code:    CodeInternalError,
			Message: "internal server error",
		}
		// Detail is only surfaced outside production.
		if !s.cfg.IsProduction() {
			payload.Message = err.Error()
		}
		return http.StatusInternalServerError, payload
	}
}

// classifyErrorForLog feeds the request logger a stable error taxonomy.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrTokenInvalid),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, ErrMissingAPIKey),
		errors.Is(err, apikeydomain.ErrKeyNotFound):
		return "authentication", err.Error()
	case errors.Is(err, authdomain.ErrTokenInvalidated),
		errors.Is(err, apikeydomain.ErrKeyInactive),
		errors.Is(err, apikeydomain.ErrOriginNotAllowed),
		errors.Is(err, subscriptiondomain.ErrNotSubscribed):
		return "authorization", err.Error()
	case errors.Is(err, subscriptiondomain.ErrOpeningsLimitReached),
		errors.Is(err, ErrRateLimited):
		return "quota", err.Error()
	case errors.Is(err, ErrInvalidRequest):
		return "validation", err.Error()
	default:
		return "internal", err.Error()
	}
}
