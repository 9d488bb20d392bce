package application

import (
	"context"
	"fmt"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// Button is one inline button: visible text and the opaque data returned on press.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

// OutgoingNotice is a message the bot sends. Text is HTML.
type OutgoingNotice struct {
	ChatID   int64
	Text     string
	Keyboard Keyboard
	// ReplyTo threads the message under another one when non-zero.
	ReplyTo int
}

// Transport is the chat-platform port.
type Transport interface {
	SendNotice(ctx context.Context, n OutgoingNotice) (entity.MessageRef, error)
	// EditNotice replaces the text of a sent message. A nil keyboard removes the buttons.
	EditNotice(ctx context.Context, ref entity.MessageRef, text string, kb Keyboard) error
	ClearButtons(ctx context.Context, ref entity.MessageRef) error
	// AnswerInteraction acknowledges a button press; alert shows a modal pop-up.
	AnswerInteraction(ctx context.Context, callbackID, text string, alert bool) error
	FetchMediaContent(ctx context.Context, fileID string) ([]byte, error)
}

// OrderBackend is the order-management service.
type OrderBackend interface {
	SubmitOrder(ctx context.Context, s entity.Submission) (*entity.OrderReceipt, error)
	ConfirmOrder(ctx context.Context, orderID int64) (*entity.ConfirmReceipt, error)
}

// PhotoArchive keeps a copy of submitted photos. Failures never block a submission.
type PhotoArchive interface {
	Archive(ctx context.Context, orderID int64, photos []entity.Photo) error
}

// MailQueue publishes e-mail jobs for the notify worker.
type MailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// StatusError is a backend answer with an unexpected status code.
type StatusError struct {
	StatusCode int
	Body       string
	// Detail is the "detail" field of a JSON error body, if any.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}
