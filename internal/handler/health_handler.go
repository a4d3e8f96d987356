// Package handler contains HTTP request handlers.
// In Gin, a handler is any function with signature func(*gin.Context).
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleveque/crosssite/internal/service"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	origins  *service.AllowedOrigins
	upstream string
}

// NewHealthHandler creates a HealthHandler reporting the origin mode and
// upstream so operators can spot a gateway running on the wildcard fallback.
func NewHealthHandler(origins *service.AllowedOrigins, upstream string) *HealthHandler {
	return &HealthHandler{origins: origins, upstream: upstream}
}

// Healthz responds with service status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	mode := "allowlist"
	if h.origins.IsWildcard() {
		mode = "wildcard"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     "crosssite",
		"origin_mode": mode,
		"upstream":    h.upstream != "",
	})
}
