package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	"github.com/roamkit/roamkit/internal/tenantctx"
)

type issueAPIKeyRequest struct {
	Domain         string   `json:"domain"`
	AllowedOrigins []string `json:"allowed_origins"`
}

func (s *Server) ListAPIKeys(c *gin.Context) {
	keys, err := s.apiKeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

// IssueAPIKey creates a key for a domain. Registering a new domain is gated
// by the plan's domain allotment; regenerating an existing domain's key is
// always allowed.
func (s *Server) IssueAPIKey(c *gin.Context) {
	var req issueAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	if domain == "" {
		AbortWithError(c, apikeydomain.ErrInvalidDomain)
		return
	}

	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rejection, err := s.gate.Run(c.Request.Context(),
		s.gate.RequireLiveSubscription(tenantID),
		s.gate.CheckDomainLimit(tenantID, domain),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rejection != nil {
		AbortWithRejection(c, rejection)
		return
	}

	resp, err := s.apiKeySvc.Issue(c.Request.Context(), apikeydomain.IssueRequest{
		Domain:         domain,
		AllowedOrigins: req.AllowedOrigins,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	if err := s.apiKeySvc.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
