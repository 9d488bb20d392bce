package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/metrics"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// OrderService turns album batches into backend submissions and drives the
// replace and confirmation flows around them.
type OrderService struct {
	Backend   OrderBackend
	Transport Transport
	Replace   repo.ReplaceTargetRepository
	// Archive is optional.
	Archive PhotoArchive
	Logger  *logrus.Logger
}

func NewOrderService(backend OrderBackend, transport Transport, replace repo.ReplaceTargetRepository, archive PhotoArchive, logger *logrus.Logger) *OrderService {
	return &OrderService{
		Backend:   backend,
		Transport: transport,
		Replace:   replace,
		Archive:   archive,
		Logger:    logger,
	}
}

func conversationOf(ev entity.Event) entity.ConversationKey {
	return entity.ConversationKey{ChatID: ev.ChatID, UserID: ev.Actor.ID}
}

// HandleBatch is the aggregator flush target. The pending replace target of the
// conversation is consumed here, whatever the outcome of the submission.
func (s *OrderService) HandleBatch(ctx context.Context, batch entity.AlbumBatch) {
	if len(batch.Events) == 0 {
		return
	}
	first := batch.First()
	fields := logrus.Fields{"user_id": first.Actor.ID, "chat_id": first.ChatID, "photos": len(batch.Events), "album": batch.Key}

	var replaceID *int64
	id, ok, err := s.Replace.Take(ctx, conversationOf(first))
	if err != nil {
		helpers.LogError(s.Logger, "replace target lookup failed", err, fields)
	} else if ok {
		replaceID = &id
		fields["replace_order_id"] = id
	}

	notice, err := s.Transport.SendNotice(ctx, OutgoingNotice{ChatID: first.ChatID, Text: textSubmitting})
	if err != nil {
		helpers.LogError(s.Logger, "submitting notice failed", err, fields)
	}
	if _, err := s.Submit(ctx, batch, replaceID, notice); err != nil {
		helpers.LogError(s.Logger, "order submission failed", err, fields)
		return
	}
	helpers.LogInfo(s.Logger, "order submitted", fields)
}

// Submit sends one multi-part submission for the batch and reports the outcome
// through notice. There are no retries.
func (s *OrderService) Submit(ctx context.Context, batch entity.AlbumBatch, replaceID *int64, notice entity.MessageRef) (*entity.OrderReceipt, error) {
	first := batch.First()
	sub := entity.Submission{
		UserID:         first.Actor.ID,
		ChatID:         first.ChatID,
		Username:       first.Actor.Username,
		FullName:       first.Actor.FullName,
		Description:    batch.Description(),
		ReplaceOrderID: replaceID,
		UserMessageID:  first.MessageID,
	}
	for i := range batch.Events {
		ev := &batch.Events[i]
		if !ev.HasPhoto() {
			continue
		}
		content, err := s.Transport.FetchMediaContent(ctx, ev.PhotoFileID)
		if err != nil {
			metrics.Submissions.WithLabelValues("failed").Inc()
			s.report(ctx, first.ChatID, notice, textSubmitFailed)
			return nil, fmt.Errorf("fetch photo %s: %w", ev.PhotoFileID, err)
		}
		sub.Photos = append(sub.Photos, entity.Photo{Filename: ev.PhotoFileID + ".jpg", Content: content})
	}

	receipt, err := s.Backend.SubmitOrder(ctx, sub)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			metrics.Submissions.WithLabelValues("rejected").Inc()
			s.report(ctx, first.ChatID, notice, serverErrorText(se.StatusCode))
		} else {
			metrics.Submissions.WithLabelValues("failed").Inc()
			s.report(ctx, first.ChatID, notice, textSubmitFailed)
		}
		return nil, err
	}

	outcome := "created"
	if replaceID != nil {
		outcome = "replaced"
	}
	metrics.Submissions.WithLabelValues(outcome).Inc()
	s.report(ctx, first.ChatID, notice, orderAcceptedText(receipt.ID, replaceID, sub.Description))

	if s.Archive != nil && len(sub.Photos) > 0 {
		if err := s.Archive.Archive(ctx, receipt.ID, sub.Photos); err != nil {
			helpers.LogError(s.Logger, "photo archive failed", err, logrus.Fields{"order_id": receipt.ID})
		}
	}
	return receipt, nil
}

// report edits the status notice, falling back to a new message when it cannot be edited.
func (s *OrderService) report(ctx context.Context, chatID int64, notice entity.MessageRef, text string) {
	if !notice.IsZero() {
		err := s.Transport.EditNotice(ctx, notice, text, nil)
		if err == nil {
			return
		}
		helpers.LogError(s.Logger, "status notice edit failed", err, logrus.Fields{"chat_id": chatID})
		if text == textSubmitFailed {
			text = textSubmitFailedShort
		}
	}
	if _, err := s.Transport.SendNotice(ctx, OutgoingNotice{ChatID: chatID, Text: text}); err != nil {
		helpers.LogError(s.Logger, "status notice send failed", err, logrus.Fields{"chat_id": chatID})
	}
}
