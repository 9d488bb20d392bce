package middleware

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/bot"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// Admission runs the admission gate before any handler. Denied events are answered with
// the denial text and go no further; admitted ones carry the decision in the context.
func Admission(gate *application.AdmissionGate, logger *logrus.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, ev *entity.Event) error {
			d := gate.Decide(ctx, ev)
			if !d.Admits() {
				fields := logrus.Fields{"user_id": ev.Actor.ID, "reason": string(d.Reason), "trace_id": bot.TraceID(ctx)}
				helpers.LogInfo(logger, "event denied", fields)
				if err := gate.Notify(ctx, ev, d); err != nil {
					helpers.LogWarn(logger, "denial notice failed", err, fields)
				}
				return nil
			}
			return next(bot.WithDecision(ctx, d), ev)
		}
	}
}
