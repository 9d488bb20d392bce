package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pulse-correction-bot/pkg/response"
)

// HealthCheck pings one backend; a nil error means it is reachable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	Started time.Time
	Mode    string
	// Gauges are sampled on every request, e.g. active lanes or pending albums.
	Gauges map[string]func() int
	// Checks cover the configured backends only.
	Checks       map[string]HealthCheck
	CheckTimeout time.Duration
}

func NewHealthHandler(mode string, gauges map[string]func() int, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{Started: time.Now(), Mode: mode, Gauges: gauges, Checks: checks, CheckTimeout: 2 * time.Second}
}

// Health always answers 200 while the process runs; an unreachable backend turns the
// status into "degraded".
func (h *HealthHandler) Health(c *gin.Context) {
	data := gin.H{
		"status": "ok",
		"mode":   h.Mode,
		"uptime": time.Since(h.Started).Round(time.Second).String(),
	}
	for name, g := range h.Gauges {
		data[name] = g()
	}
	if len(h.Checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.CheckTimeout)
		defer cancel()
		backends := gin.H{}
		for name, check := range h.Checks {
			if err := check(ctx); err != nil {
				backends[name] = "down: " + err.Error()
				data["status"] = "degraded"
				continue
			}
			backends[name] = "up"
		}
		data["backends"] = backends
	}
	response.Success(c, http.StatusOK, data, "healthy", nil)
}
