package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/pulse-correction-bot/internal/interface/http"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/middleware"
)

// HealthModule serves GET /api/health.
type HealthModule struct {
	Handler *handlers.HealthHandler
}

func NewHealthModule(h *handlers.HealthHandler) *HealthModule { return &HealthModule{Handler: h} }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Handler.Health)
}

// MetricsModule serves the Prometheus registry at GET /metrics, rate-limited per IP
// for anything outside private networks.
type MetricsModule struct {
	Redis *redis.Client
}

func NewMetricsModule(rdb *redis.Client) *MetricsModule { return &MetricsModule{Redis: rdb} }

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/metrics", rl, gin.WrapH(promhttp.Handler()))
}

// WebhookModule receives Telegram updates at POST /telegram/webhook/:secret.
type WebhookModule struct {
	Handler *handlers.WebhookHandler
	Secret  string
}

func NewWebhookModule(h *handlers.WebhookHandler, secret string) *WebhookModule {
	return &WebhookModule{Handler: h, Secret: secret}
}

func (m *WebhookModule) Register(rg *gin.RouterGroup) {
	rg.POST("/telegram/webhook/:secret", middleware.WebhookSecret(m.Secret), m.Handler.Receive)
}
