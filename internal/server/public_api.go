package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Public data API, keyed and rate limited per API key.

func (s *Server) APICountries(c *gin.Context) {
	key := apiKeyFromContext(c)
	if key == nil {
		AbortWithError(c, ErrMissingAPIKey)
		return
	}

	countries, err := s.placeSvc.ListCountries(c.Request.Context(), key.TenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": countries})
}

func (s *Server) APIPlaces(c *gin.Context) {
	key := apiKeyFromContext(c)
	if key == nil {
		AbortWithError(c, ErrMissingAPIKey)
		return
	}

	country := c.Query("country")
	if country == "" {
		places, err := s.placeSvc.List(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"places": places})
		return
	}

	places, err := s.placeSvc.ListByCountry(c.Request.Context(), key.TenantID, country)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}
