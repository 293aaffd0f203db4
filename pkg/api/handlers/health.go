package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/deconz2z2m/pkg/api/types"
	"github.com/urmzd/deconz2z2m/pkg/db"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store *db.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *db.DB) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the API and its state database
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	stateDB := "disabled"
	if h.store != nil {
		stateDB = "ok"
		if err := h.store.PingContext(c.Request.Context()); err != nil {
			stateDB = "unavailable"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK

	if stateDB == "unavailable" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		StateDB:   stateDB,
		Timestamp: time.Now(),
	})
}
