package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"github.com/roamkit/roamkit/internal/tenantctx"
)

func (s *Server) ListPlaces(c *gin.Context) {
	places, err := s.placeSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, places)
}

// CreatePlace adds a tenant place. Creation is gated by the plan's custom
// place allowance; cached widget data is flushed afterwards so embeds pick
// up the change.
func (s *Server) CreatePlace(c *gin.Context) {
	var req placedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rejection, err := s.gate.Run(c.Request.Context(),
		s.gate.RequireLiveSubscription(tenantID),
		s.gate.CheckCustomPlaceLimit(tenantID, true),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rejection != nil {
		AbortWithRejection(c, rejection)
		return
	}

	resp, err := s.placeSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.flushWidgetCache(c)
	c.JSON(http.StatusOK, resp)
}

// UpdatePlace modifies an existing place. Updates bypass the place cap.
func (s *Server) UpdatePlace(c *gin.Context) {
	var req placedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ID = c.Param("id")

	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rejection, err := s.gate.Run(c.Request.Context(),
		s.gate.RequireLiveSubscription(tenantID),
		s.gate.CheckCustomPlaceLimit(tenantID, false),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rejection != nil {
		AbortWithRejection(c, rejection)
		return
	}

	resp, err := s.placeSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.flushWidgetCache(c)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeletePlace(c *gin.Context) {
	if err := s.placeSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	s.flushWidgetCache(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// flushWidgetCache drops the mutating tenant's cached widget responses. The
// tenant ID leads every cache key, so the prefix removes entries for all of
// the tenant's API keys without touching other tenants.
func (s *Server) flushWidgetCache(c *gin.Context) {
	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok {
		return
	}
	s.respCache.Flush(tenantID.String() + ":")
}
