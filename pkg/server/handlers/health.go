package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store vectorstore.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store vectorstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "go-airchat",
	})
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not ready",
				"service": "go-airchat",
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "go-airchat",
	})
}
