package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

const (
	editPrefix    = "user_edit_"
	confirmPrefix = "user_confirm_"
)

// IsEditData reports whether button data asks to edit an order.
func IsEditData(data string) bool { return strings.HasPrefix(data, editPrefix) }

// IsConfirmData reports whether button data confirms an order.
func IsConfirmData(data string) bool { return strings.HasPrefix(data, confirmPrefix) }

// ParseOrderData extracts the order id from "user_edit_<id>" or "user_confirm_<id>".
func ParseOrderData(data string) (int64, error) {
	i := strings.LastIndexByte(data, '_')
	if i < 0 {
		return 0, ErrBadCallbackData
	}
	id, err := strconv.ParseInt(data[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadCallbackData, data)
	}
	return id, nil
}

// CaptureReplaceTarget handles a numeric-only message: the next batch of this conversation
// replaces that order. A later number overwrites an earlier one.
func (s *OrderService) CaptureReplaceTarget(ctx context.Context, ev *entity.Event) error {
	orderID, err := strconv.ParseInt(ev.Text, 10, 64)
	if err != nil {
		return fmt.Errorf("parse order id %q: %w", ev.Text, err)
	}
	if err := s.Replace.Set(ctx, conversationOf(*ev), orderID); err != nil {
		return fmt.Errorf("store replace target: %w", err)
	}
	_, err = s.Transport.SendNotice(ctx, OutgoingNotice{ChatID: ev.ChatID, Text: replaceCapturedText(orderID)})
	return err
}

// StartEdit handles the edit button under a completed order.
func (s *OrderService) StartEdit(ctx context.Context, ev *entity.Event, orderID int64) error {
	if err := s.Replace.Set(ctx, conversationOf(*ev), orderID); err != nil {
		_ = s.Transport.AnswerInteraction(ctx, ev.CallbackID, alertDenyUnavailable, true)
		return fmt.Errorf("store replace target: %w", err)
	}
	_ = s.Transport.AnswerInteraction(ctx, ev.CallbackID, "", false)
	_, err := s.Transport.SendNotice(ctx, OutgoingNotice{
		ChatID:  ev.ChatID,
		Text:    editModeText(orderID),
		ReplyTo: ev.Notice.MessageID,
	})
	return err
}
