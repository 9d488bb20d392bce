package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/bot"
)

const previewRunes = 60

// EventLogger prints every inbound event with the actor identity, which is also how
// operators find the ids to put into ADMIN_IDS.
func EventLogger(logger *logrus.Logger, isAdmin func(int64) bool) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, ev *entity.Event) error {
			role := entity.RoleUser
			if isAdmin != nil && isAdmin(ev.Actor.ID) {
				role = entity.RoleAdmin
			}
			fields := logrus.Fields{
				"role":      role.Label(),
				"user_id":   ev.Actor.ID,
				"username":  ev.Actor.Username,
				"full_name": ev.Actor.FullName,
				"chat_id":   ev.ChatID,
				"trace_id":  bot.TraceID(ctx),
			}
			if ev.IsCallback() {
				fields["callback_data"] = ev.CallbackData
			} else {
				fields["text"] = ev.Preview(previewRunes)
			}
			logger.WithFields(fields).Info("inbound event")
			return next(ctx, ev)
		}
	}
}

// AccessLog logs one line per HTTP request on the ops server.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     normalizePath(c),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       ipFromCtx(c),
			"trace_id": c.GetString(TraceIDKey),
		}).Info("http request")
	}
}
