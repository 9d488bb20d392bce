package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/telegram"
	"github.com/oksasatya/pulse-correction-bot/pkg/response"
	"github.com/oksasatya/pulse-correction-bot/pkg/validation"
)

// Dispatcher accepts converted events; it reports false when it no longer takes work.
type Dispatcher interface {
	Submit(ev entity.Event) bool
}

// WebhookHandler receives updates pushed by Telegram in webhook mode.
type WebhookHandler struct {
	Dispatch Dispatcher
	Logger   *logrus.Logger
}

func NewWebhookHandler(d Dispatcher, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{Dispatch: d, Logger: logger}
}

// Receive acknowledges the update as soon as it is queued. Updates the bot does not
// handle are acknowledged too, otherwise Telegram keeps redelivering them.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid update", validation.ToDetails(err))
		return
	}
	ev, ok := telegram.ToEvent(upd)
	if !ok {
		h.Logger.WithField("update_id", upd.UpdateID).Debug("webhook update ignored")
		c.Status(http.StatusOK)
		return
	}
	if !h.Dispatch.Submit(ev) {
		response.Error[any](c, http.StatusServiceUnavailable, "shutting down", nil)
		return
	}
	c.Status(http.StatusOK)
}
