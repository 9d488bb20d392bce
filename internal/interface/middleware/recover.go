package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/bot"
)

// Recover turns a handler panic into an error so one bad event cannot take a lane down.
func Recover(logger *logrus.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, ev *entity.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"user_id":  ev.Actor.ID,
						"trace_id": bot.TraceID(ctx),
						"stack":    string(debug.Stack()),
					}).Error("handler panic")
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, ev)
		}
	}
}
