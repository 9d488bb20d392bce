package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// Transport is the Telegram Bot API adapter.
type Transport struct {
	bot          *tgbotapi.BotAPI
	files        *http.Client
	fileEndpoint string
	logger       *logrus.Logger
}

// New connects with the public Bot API endpoints.
func New(token string, logger *logrus.Logger) (*Transport, error) {
	return NewWithEndpoints(token, tgbotapi.APIEndpoint, tgbotapi.FileEndpoint, &http.Client{Timeout: 70 * time.Second}, logger)
}

// NewWithEndpoints lets a caller point the adapter at another Bot API server.
// Both endpoints are format strings taking the token and the method or file path.
func NewWithEndpoints(token, apiEndpoint, fileEndpoint string, client *http.Client, logger *logrus.Logger) (*Transport, error) {
	_ = tgbotapi.SetLogger(logger)
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Transport{
		bot:          bot,
		files:        &http.Client{Timeout: 60 * time.Second},
		fileEndpoint: fileEndpoint,
		logger:       logger,
	}, nil
}

// Username is the bot's own handle.
func (t *Transport) Username() string { return t.bot.Self.UserName }

func keyboardMarkup(kb application.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (t *Transport) SendNotice(ctx context.Context, n application.OutgoingNotice) (entity.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return entity.MessageRef{}, err
	}
	msg := tgbotapi.NewMessage(n.ChatID, n.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = n.ReplyTo
	if len(n.Keyboard) > 0 {
		msg.ReplyMarkup = keyboardMarkup(n.Keyboard)
	}
	sent, err := t.bot.Send(msg)
	if err != nil {
		return entity.MessageRef{}, fmt.Errorf("send to %d: %w", n.ChatID, err)
	}
	return entity.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

func (t *Transport) EditNotice(ctx context.Context, ref entity.MessageRef, text string, kb application.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if len(kb) > 0 {
		markup := keyboardMarkup(kb)
		edit.ReplyMarkup = &markup
	}
	if _, err := t.bot.Request(edit); err != nil {
		return fmt.Errorf("edit %d/%d: %w", ref.ChatID, ref.MessageID, err)
	}
	return nil
}

func (t *Transport) ClearButtons(ctx context.Context, ref entity.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if _, err := t.bot.Request(tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, empty)); err != nil {
		return fmt.Errorf("clear buttons %d/%d: %w", ref.ChatID, ref.MessageID, err)
	}
	return nil
}

func (t *Transport) AnswerInteraction(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := t.bot.Request(cb); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (t *Transport) FetchMediaContent(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(t.fileEndpoint, t.bot.Token, f.FilePath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", fileID, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Poll receives updates by long polling until ctx is done. Any webhook is removed first.
func (t *Transport) Poll(ctx context.Context, handle func(entity.Event)) error {
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := t.bot.GetUpdatesChan(cfg)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := ToEvent(u); ok {
				handle(ev)
			}
		}
	}
}

// RegisterWebhook points Telegram at url.
func (t *Transport) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	helpers.LogInfo(t.logger, "webhook registered", logrus.Fields{"bot": t.bot.Self.UserName})
	return nil
}

var _ application.Transport = (*Transport)(nil)
