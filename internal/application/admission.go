package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/metrics"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// Verdict is the admission outcome for one event.
type Verdict uint8

const (
	VerdictAllow Verdict = iota + 1
	VerdictAllowBootstrapOnly
	VerdictDeny
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictAllowBootstrapOnly:
		return "allow_bootstrap_only"
	case VerdictDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// DenyReason says why an event was denied.
type DenyReason string

const (
	ReasonPending      DenyReason = "pending"
	ReasonRejected     DenyReason = "rejected"
	ReasonUnregistered DenyReason = "unregistered"
	// ReasonUnavailable is used when the directory could not be read.
	ReasonUnavailable DenyReason = "unavailable"
)

// Decision is the value the gate returns. Denials are values, not errors.
type Decision struct {
	Verdict Verdict
	Reason  DenyReason
	Role    entity.Role
}

// Admits reports whether a handler may see the event.
func (d Decision) Admits() bool { return d.Verdict != VerdictDeny }

type AdmissionGate struct {
	Users     repo.UserRepository
	Reviewers Reviewers
	Transport Transport
	Logger    *logrus.Logger
}

func NewAdmissionGate(users repo.UserRepository, reviewers Reviewers, transport Transport, logger *logrus.Logger) *AdmissionGate {
	return &AdmissionGate{Users: users, Reviewers: reviewers, Transport: transport, Logger: logger}
}

// Decide classifies an event. The directory is read on every call.
func (g *AdmissionGate) Decide(ctx context.Context, ev *entity.Event) Decision {
	d := g.decide(ctx, ev)
	metrics.AdmissionDecisions.WithLabelValues(d.Verdict.String(), string(d.Reason)).Inc()
	return d
}

func (g *AdmissionGate) decide(ctx context.Context, ev *entity.Event) Decision {
	if g.Reviewers.IsAdmin(ev.Actor.ID) {
		return Decision{Verdict: VerdictAllow, Role: entity.RoleAdmin}
	}
	if ev.IsBootstrap() {
		return Decision{Verdict: VerdictAllowBootstrapOnly, Role: entity.RoleUser}
	}
	u, err := g.Users.Get(ctx, ev.Actor.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return Decision{Verdict: VerdictDeny, Reason: ReasonUnregistered, Role: entity.RoleUser}
	}
	if err != nil {
		helpers.LogError(g.Logger, "admission: directory read failed", err, logrus.Fields{"user_id": ev.Actor.ID})
		return Decision{Verdict: VerdictDeny, Reason: ReasonUnavailable, Role: entity.RoleUser}
	}
	switch u.Status {
	case entity.StatusApproved:
		return Decision{Verdict: VerdictAllow, Role: entity.RoleUser}
	case entity.StatusPending:
		return Decision{Verdict: VerdictDeny, Reason: ReasonPending, Role: entity.RoleUser}
	case entity.StatusRejected:
		return Decision{Verdict: VerdictDeny, Reason: ReasonRejected, Role: entity.RoleUser}
	default:
		return Decision{Verdict: VerdictDeny, Reason: ReasonUnavailable, Role: entity.RoleUser}
	}
}

// Notify tells a denied actor why. Button presses get an alert, messages get a reply.
func (g *AdmissionGate) Notify(ctx context.Context, ev *entity.Event, d Decision) error {
	if d.Admits() {
		return nil
	}
	if ev.IsCallback() {
		return g.Transport.AnswerInteraction(ctx, ev.CallbackID, denyAlert(d.Reason), true)
	}
	_, err := g.Transport.SendNotice(ctx, OutgoingNotice{ChatID: ev.ChatID, Text: denyText(d.Reason)})
	return err
}

// NotifyThrottled tells the actor that an event was dropped by the flood limit.
func NotifyThrottled(ctx context.Context, t Transport, ev *entity.Event) error {
	if ev.IsCallback() {
		return t.AnswerInteraction(ctx, ev.CallbackID, alertThrottled, true)
	}
	_, err := t.SendNotice(ctx, OutgoingNotice{ChatID: ev.ChatID, Text: textThrottled, ReplyTo: ev.MessageID})
	return err
}

func denyText(r DenyReason) string {
	switch r {
	case ReasonPending:
		return textDenyPending
	case ReasonRejected:
		return textDenyRejected
	case ReasonUnregistered:
		return textDenyUnregistered
	default:
		return textDenyUnavailable
	}
}

func denyAlert(r DenyReason) string {
	switch r {
	case ReasonPending:
		return alertDenyPending
	case ReasonRejected:
		return alertDenyRejected
	case ReasonUnregistered:
		return alertDenyUnregistered
	default:
		return alertDenyUnavailable
	}
}
