package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) UsageSummary(c *gin.Context) {
	summary, err := s.usageSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
