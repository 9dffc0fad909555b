package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WidgetConfig returns the embed configuration for the calling key.
func (s *Server) WidgetConfig(c *gin.Context) {
	key := apiKeyFromContext(c)
	if key == nil {
		AbortWithError(c, ErrMissingAPIKey)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"domain":          key.Domain,
		"allowed_origins": []string(key.AllowedOrigins),
	})
}

func (s *Server) WidgetCountries(c *gin.Context) {
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

func (s *Server) WidgetCountryPlaces(c *gin.Context) {
	key := apiKeyFromContext(c)
	if key == nil {
		AbortWithError(c, ErrMissingAPIKey)
		return
	}

	places, err := s.placeSvc.ListByCountry(c.Request.Context(), key.TenantID, c.Param("country"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

func (s *Server) WidgetPlace(c *gin.Context) {
	key := apiKeyFromContext(c)
	if key == nil {
		AbortWithError(c, ErrMissingAPIKey)
		return
	}

	country, err := s.placeSvc.ResolveCountry(c.Request.Context(), key.TenantID, c.Param("place"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	places, err := s.placeSvc.ListByCountry(c.Request.Context(), key.TenantID, country)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	name := c.Param("place")
	for _, place := range places {
		if place.Name == name || place.CustomName == name {
			c.JSON(http.StatusOK, place)
			return
		}
	}
	AbortWithError(c, ErrNotFound)
}
