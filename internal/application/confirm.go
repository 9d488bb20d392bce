package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// ConfirmOrder handles the confirm button: the backend marks the order done and the
// bot threads a completion reply under the original user message.
func (s *OrderService) ConfirmOrder(ctx context.Context, ev *entity.Event, orderID int64) error {
	_ = s.Transport.AnswerInteraction(ctx, ev.CallbackID, alertConfirmInProgress, false)
	fields := logrus.Fields{"order_id": orderID, "user_id": ev.Actor.ID}

	receipt, err := s.Backend.ConfirmOrder(ctx, orderID)
	if err != nil {
		helpers.LogError(s.Logger, "order confirmation failed", err, fields)
		text := textConfirmUnreachable
		var se *StatusError
		if errors.As(err, &se) {
			detail := se.Detail
			if detail == "" {
				detail = textConfirmDefaultErr
			}
			text = confirmErrorText(detail)
		}
		_, sendErr := s.Transport.SendNotice(ctx, OutgoingNotice{ChatID: ev.ChatID, Text: text, ReplyTo: ev.Notice.MessageID})
		return errors.Join(err, sendErr)
	}

	if !ev.Notice.IsZero() {
		if err := s.Transport.ClearButtons(ctx, ev.Notice); err != nil {
			helpers.LogError(s.Logger, "clear confirm buttons failed", err, fields)
		}
	}
	replyTo := ev.Notice.MessageID
	if receipt.UserMessageID != 0 {
		replyTo = receipt.UserMessageID
	}
	_, err = s.Transport.SendNotice(ctx, OutgoingNotice{ChatID: ev.ChatID, Text: orderDoneText(orderID), ReplyTo: replyTo})
	return err
}
