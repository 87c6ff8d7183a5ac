package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"coursedesk/internal/caching"
)

// Pinger is the connectivity probe the health endpoints run against
// the relational store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles the health and readiness endpoints.
type HealthHandlers struct {
	db    Pinger
	store caching.Store
}

func NewHealthHandlers(db Pinger, store caching.Store) *HealthHandlers {
	return &HealthHandlers{
		db:    db,
		store: store,
	}
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// HealthCheck handles GET /health.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	if err := h.db.Ping(ctx); err != nil {
		health.Services["database"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["database"] = "healthy"
	}

	if err := h.store.Ping(ctx); err != nil {
		health.Services["store"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["store"] = "healthy"
	}

	code := http.StatusOK
	if health.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, health)
}

// ReadinessCheck handles GET /health/ready.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
