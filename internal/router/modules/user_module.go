package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/pulse-correction-bot/internal/interface/http"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/middleware"
)

// UserModule exposes the user directory to the backend.
// GET /api/users/:id, GET /api/users/search?q=
// Both require the X-Bot-Secret header.
type UserModule struct {
	Handler *handlers.UserHandler
	Secret  string
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, secret string, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Secret: secret, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(
		middleware.BotSecret(m.Secret),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
	)
	{
		users.GET("/search", m.Handler.SearchUsers)
		users.GET("/:id", m.Handler.Get)
	}
}
