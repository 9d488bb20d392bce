package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/bot"
)

// TraceIDKey is the gin context key read by pkg/response.
const TraceIDKey = "trace_id"

// TraceID injects a unique trace_id into the Gin context for every request
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set(TraceIDKey, id)
		c.Header("X-Trace-ID", id)
		c.Next()
	}
}

// EventTraceID gives every inbound bot event its own trace id.
func EventTraceID() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, ev *entity.Event) error {
			return next(bot.WithTraceID(ctx, uuid.NewString()), ev)
		}
	}
}
