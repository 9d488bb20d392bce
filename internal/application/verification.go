package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/metrics"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
	"github.com/oksasatya/pulse-correction-bot/pkg/mailer"
	mailtpl "github.com/oksasatya/pulse-correction-bot/pkg/mailer/templates"
)

const verifyPrefix = "verify:"

// DecisionAction is the reviewer choice carried by a verify button.
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// Target returns the status the action moves a pending user to.
func (a DecisionAction) Target() entity.Status {
	if a == ActionApprove {
		return entity.StatusApproved
	}
	return entity.StatusRejected
}

// IsVerifyData reports whether button data belongs to the verification workflow.
func IsVerifyData(data string) bool { return strings.HasPrefix(data, verifyPrefix) }

// ParseVerifyData parses "verify:<approve|reject>:<user id>".
func ParseVerifyData(data string) (DecisionAction, int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0]+":" != verifyPrefix {
		return "", 0, ErrBadCallbackData
	}
	action := DecisionAction(parts[1])
	if action != ActionApprove && action != ActionReject {
		return "", 0, ErrBadCallbackData
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrBadCallbackData, err)
	}
	return action, id, nil
}

// DecisionOutcome is the result of a reviewer press.
type DecisionOutcome uint8

const (
	OutcomeApplied DecisionOutcome = iota + 1
	OutcomeAlreadyHandled
)

type VerificationWorkflow struct {
	Users     repo.UserRepository
	Reviewers Reviewers
	Transport Transport
	// Mail is optional; e-mail destinations fail without it.
	Mail    MailQueue
	AppName string
	Logger  *logrus.Logger
}

func NewVerificationWorkflow(users repo.UserRepository, reviewers Reviewers, transport Transport, mail MailQueue, appName string, logger *logrus.Logger) *VerificationWorkflow {
	return &VerificationWorkflow{
		Users:     users,
		Reviewers: reviewers,
		Transport: transport,
		Mail:      mail,
		AppName:   appName,
		Logger:    logger,
	}
}

// Bootstrap handles the bootstrap command. For a new user it creates a pending record and
// fans out a verification notice; the returned slice has one result per destination.
func (w *VerificationWorkflow) Bootstrap(ctx context.Context, ev *entity.Event) ([]entity.DeliveryResult, error) {
	actor := ev.Actor

	if w.Reviewers.IsAdmin(actor.ID) {
		if err := w.Users.Upsert(ctx, actor.ID, entity.PatchFromActor(actor, entity.StatusApproved)); err != nil {
			return nil, fmt.Errorf("store admin %d: %w", actor.ID, err)
		}
		return nil, w.reply(ctx, ev.ChatID, adminWelcomeText(actor))
	}

	u, err := w.Users.Get(ctx, actor.ID)
	switch {
	case err == nil:
		return nil, w.reply(ctx, ev.ChatID, existingUserText(u, actor))
	case !errors.Is(err, repo.ErrNotFound):
		_ = w.reply(ctx, ev.ChatID, textDenyUnavailable)
		return nil, fmt.Errorf("read user %d: %w", actor.ID, err)
	}

	if err := w.Users.Upsert(ctx, actor.ID, entity.PatchFromActor(actor, entity.StatusPending)); err != nil {
		_ = w.reply(ctx, ev.ChatID, textDenyUnavailable)
		return nil, fmt.Errorf("store pending user %d: %w", actor.ID, err)
	}
	if err := w.reply(ctx, ev.ChatID, textBootstrapCreated); err != nil {
		helpers.LogError(w.Logger, "bootstrap: reply failed", err, logrus.Fields{"user_id": actor.ID})
	}

	user := entity.User{ID: actor.ID, Username: actor.Username, FullName: actor.FullName, Status: entity.StatusPending}
	return w.fanOut(ctx, user), nil
}

func existingUserText(u *entity.User, actor entity.Actor) string {
	switch u.Status {
	case entity.StatusApproved:
		return approvedWelcomeText(actor)
	case entity.StatusPending:
		return textBootstrapPending
	case entity.StatusRejected:
		return textBootstrapRejected
	default:
		return textDenyUnavailable
	}
}

func (w *VerificationWorkflow) fanOut(ctx context.Context, u entity.User) []entity.DeliveryResult {
	dests := w.Reviewers.Destinations()
	results := make([]entity.DeliveryResult, 0, len(dests))
	text := verificationRequestText(u)
	for _, d := range dests {
		var err error
		switch d.Kind {
		case entity.DestinationChat:
			_, err = w.Transport.SendNotice(ctx, OutgoingNotice{
				ChatID:   d.ChatID,
				Text:     text,
				Keyboard: verificationKeyboard(u.ID),
			})
		case entity.DestinationEmail:
			err = w.publishMail(ctx, mailer.EmailJob{
				To:       d.Email,
				Template: mailtpl.VerificationRequest,
				Data:     mailtpl.NewVerificationRequestData(w.AppName, d.Email, u.FullName, u.Username, u.ID, mailtpl.WithTime(time.Now())),
			})
		default:
			err = fmt.Errorf("unknown destination kind %q", d.Kind)
		}
		metrics.ReviewerDeliveries.WithLabelValues(string(d.Kind), metrics.Outcome(err)).Inc()
		if err != nil {
			helpers.LogError(w.Logger, "verification notice not delivered", err, logrus.Fields{
				"user_id":     u.ID,
				"destination": d.String(),
			})
		}
		results = append(results, entity.DeliveryResult{Destination: d, Err: err})
	}
	return results
}

// Decide applies a reviewer press. A user that is no longer pending, including one that
// another reviewer decided a moment earlier, yields OutcomeAlreadyHandled.
func (w *VerificationWorkflow) Decide(ctx context.Context, ev *entity.Event, action DecisionAction, targetID int64) (DecisionOutcome, error) {
	if !w.Reviewers.CanDecide(ev.Actor.ID, ev.ChatID) {
		_ = w.Transport.AnswerInteraction(ctx, ev.CallbackID, alertForbidden, true)
		metrics.VerificationDecisions.WithLabelValues("forbidden").Inc()
		return 0, ErrForbiddenDecision
	}

	u, err := w.Users.Get(ctx, targetID)
	if err != nil {
		_ = w.Transport.AnswerInteraction(ctx, ev.CallbackID, alertDenyUnavailable, true)
		return 0, fmt.Errorf("read user %d: %w", targetID, err)
	}
	if u.Status != entity.StatusPending {
		return OutcomeAlreadyHandled, w.alreadyHandled(ctx, ev, *u)
	}

	to := action.Target()
	won, err := w.Users.CompareAndSetStatus(ctx, targetID, entity.StatusPending, to)
	if err != nil {
		_ = w.Transport.AnswerInteraction(ctx, ev.CallbackID, alertDenyUnavailable, true)
		return 0, fmt.Errorf("set status of %d: %w", targetID, err)
	}
	if !won {
		fresh, err := w.Users.Get(ctx, targetID)
		if err != nil {
			_ = w.Transport.AnswerInteraction(ctx, ev.CallbackID, alertAlreadyHandled, true)
			return OutcomeAlreadyHandled, nil
		}
		return OutcomeAlreadyHandled, w.alreadyHandled(ctx, ev, *fresh)
	}
	metrics.VerificationDecisions.WithLabelValues(to.String()).Inc()
	u.Status = to

	fields := logrus.Fields{"user_id": targetID, "reviewer_id": ev.Actor.ID, "status": to.String()}
	helpers.LogInfo(w.Logger, "verification decided", fields)

	userText := textUserRejected
	if to == entity.StatusApproved {
		userText = textUserApproved
	}
	if _, err := w.Transport.SendNotice(ctx, OutgoingNotice{ChatID: targetID, Text: userText}); err != nil {
		helpers.LogError(w.Logger, "decision: user notice failed", err, fields)
	}
	if !ev.Notice.IsZero() {
		text := pressedNoticeText(ev, *u) + resolutionLine(to, ev.Actor)
		if err := w.Transport.EditNotice(ctx, ev.Notice, text, nil); err != nil {
			helpers.LogError(w.Logger, "decision: reviewer notice edit failed", err, fields)
		}
	}
	w.publishDecision(ctx, *u, ev.Actor)
	return OutcomeApplied, w.Transport.AnswerInteraction(ctx, ev.CallbackID, "", false)
}

// alreadyHandled alerts the reviewer and annotates the pressed notice once.
func (w *VerificationWorkflow) alreadyHandled(ctx context.Context, ev *entity.Event, u entity.User) error {
	metrics.VerificationDecisions.WithLabelValues("already_handled").Inc()
	err := w.Transport.AnswerInteraction(ctx, ev.CallbackID, alertAlreadyHandled, true)
	if ev.Notice.IsZero() || !u.Status.Terminal() {
		return err
	}
	// NoticeText is the rendered text without markup.
	if strings.Contains(ev.NoticeText, plainStatusLabel(u.Status)) {
		return err
	}
	text := pressedNoticeText(ev, u) + alreadyHandledLine(u.Status)
	if editErr := w.Transport.EditNotice(ctx, ev.Notice, text, nil); editErr != nil {
		helpers.LogError(w.Logger, "decision: annotate handled notice failed", editErr, logrus.Fields{"user_id": u.ID})
	}
	return err
}

func (w *VerificationWorkflow) publishDecision(ctx context.Context, u entity.User, reviewer entity.Actor) {
	for _, d := range w.Reviewers.Destinations() {
		if d.Kind != entity.DestinationEmail {
			continue
		}
		err := w.publishMail(ctx, mailer.EmailJob{
			To:       d.Email,
			Template: mailtpl.VerificationDecided,
			Data: mailtpl.NewVerificationDecidedData(w.AppName, d.Email, u.FullName, u.Username, u.ID,
				u.Status.String(), reviewer.Handle(), mailtpl.WithTime(time.Now())),
		})
		if err != nil {
			helpers.LogError(w.Logger, "decision event not published", err, logrus.Fields{"user_id": u.ID, "destination": d.String()})
		}
	}
}

func (w *VerificationWorkflow) publishMail(ctx context.Context, job mailer.EmailJob) error {
	if w.Mail == nil {
		return ErrMailQueueDisabled
	}
	return w.Mail.PublishJSON(ctx, job)
}

func (w *VerificationWorkflow) reply(ctx context.Context, chatID int64, text string) error {
	_, err := w.Transport.SendNotice(ctx, OutgoingNotice{ChatID: chatID, Text: text})
	return err
}
