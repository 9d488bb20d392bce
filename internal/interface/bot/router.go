package bot

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// Matcher selects the events a route handles.
type Matcher func(ev *entity.Event) bool

type route struct {
	name  string
	match Matcher
	h     HandlerFunc
}

// Router sends each event to the first route whose matcher accepts it.
// Events no route accepts are ignored.
type Router struct {
	routes []route
	logger *logrus.Logger
}

func NewRouter(logger *logrus.Logger) *Router {
	return &Router{logger: logger}
}

func (r *Router) Handle(name string, match Matcher, h HandlerFunc) {
	r.routes = append(r.routes, route{name: name, match: match, h: h})
}

// Dispatch is a HandlerFunc; it is the innermost link of the middleware chain.
func (r *Router) Dispatch(ctx context.Context, ev *entity.Event) error {
	for _, rt := range r.routes {
		if !rt.match(ev) {
			continue
		}
		if err := rt.h(ctx, ev); err != nil {
			return &RouteError{Route: rt.name, Err: err}
		}
		return nil
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": ev.Actor.ID, "trace_id": TraceID(ctx)}).Debug("event ignored")
	}
	return nil
}

// RouteError names the route whose handler failed.
type RouteError struct {
	Route string
	Err   error
}

func (e *RouteError) Error() string { return e.Route + ": " + e.Err.Error() }
func (e *RouteError) Unwrap() error { return e.Err }

// Handlers adapts the application services to routes.
type Handlers struct {
	Verification *application.VerificationWorkflow
	Orders       *application.OrderService
	Albums       *application.AlbumAggregator
	Logger       *logrus.Logger
}

// Register installs the bot routes. Order matters: button prefixes are disjoint, and a
// numeric text can never carry a photo.
func (h *Handlers) Register(r *Router) {
	r.Handle("bootstrap", func(ev *entity.Event) bool { return ev.IsBootstrap() }, h.Bootstrap)
	r.Handle("verify", callbackWith(application.IsVerifyData), h.Verify)
	r.Handle("confirm", callbackWith(application.IsConfirmData), h.Confirm)
	r.Handle("edit", callbackWith(application.IsEditData), h.Edit)
	r.Handle("replace_target", func(ev *entity.Event) bool { return ev.IsNumericOnly() }, h.ReplaceTarget)
	r.Handle("photo", func(ev *entity.Event) bool { return ev.HasPhoto() }, h.Photo)
}

func callbackWith(prefix func(string) bool) Matcher {
	return func(ev *entity.Event) bool { return ev.IsCallback() && prefix(ev.CallbackData) }
}

func (h *Handlers) Bootstrap(ctx context.Context, ev *entity.Event) error {
	results, err := h.Verification.Bootstrap(ctx, ev)
	if err != nil {
		return err
	}
	for _, res := range results {
		if !res.Delivered() {
			helpers.LogWarn(h.Logger, "reviewer notice not delivered", res.Err, logrus.Fields{
				"user_id":     ev.Actor.ID,
				"destination": res.Destination.String(),
				"trace_id":    TraceID(ctx),
			})
		}
	}
	return nil
}

func (h *Handlers) Verify(ctx context.Context, ev *entity.Event) error {
	action, target, err := application.ParseVerifyData(ev.CallbackData)
	if err != nil {
		return err
	}
	_, err = h.Verification.Decide(ctx, ev, action, target)
	if errors.Is(err, application.ErrForbiddenDecision) {
		helpers.LogWarn(h.Logger, "decision from non-reviewer", err, logrus.Fields{"actor_id": ev.Actor.ID, "chat_id": ev.ChatID})
		return nil
	}
	return err
}

func (h *Handlers) Confirm(ctx context.Context, ev *entity.Event) error {
	id, err := application.ParseOrderData(ev.CallbackData)
	if err != nil {
		return err
	}
	return h.Orders.ConfirmOrder(ctx, ev, id)
}

func (h *Handlers) Edit(ctx context.Context, ev *entity.Event) error {
	id, err := application.ParseOrderData(ev.CallbackData)
	if err != nil {
		return err
	}
	return h.Orders.StartEdit(ctx, ev, id)
}

func (h *Handlers) ReplaceTarget(ctx context.Context, ev *entity.Event) error {
	return h.Orders.CaptureReplaceTarget(ctx, ev)
}

func (h *Handlers) Photo(ctx context.Context, ev *entity.Event) error {
	h.Albums.OnEvent(ctx, *ev)
	return nil
}
