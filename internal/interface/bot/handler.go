package bot

import (
	"context"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// HandlerFunc processes one inbound event. A returned error is logged by the caller;
// user-visible failures are reported by the handler itself.
type HandlerFunc func(ctx context.Context, ev *entity.Event) error

// Middleware wraps a handler. Returning without calling next drops the event.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps h so that the first middleware runs first.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey int

const (
	traceIDKey ctxKey = iota
	decisionKey
)

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// TraceID returns the id assigned to the event being handled, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

func WithDecision(ctx context.Context, d application.Decision) context.Context {
	return context.WithValue(ctx, decisionKey, d)
}

// DecisionFrom returns the admission decision stored by the admission middleware.
func DecisionFrom(ctx context.Context) (application.Decision, bool) {
	d, ok := ctx.Value(decisionKey).(application.Decision)
	return d, ok
}
