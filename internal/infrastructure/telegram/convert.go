package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// ToEvent converts an update into an event. ok is false for update kinds the bot ignores.
func ToEvent(u tgbotapi.Update) (entity.Event, bool) {
	switch {
	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Chat == nil {
			return entity.Event{}, false
		}
		ev := entity.Event{
			Kind:         entity.KindMessage,
			UpdateID:     u.UpdateID,
			Actor:        actorOf(m.From),
			ChatID:       m.Chat.ID,
			MessageID:    m.MessageID,
			Text:         m.Text,
			Caption:      m.Caption,
			MediaGroupID: m.MediaGroupID,
		}
		if n := len(m.Photo); n > 0 {
			// sizes are ordered small to large
			ev.PhotoFileID = m.Photo[n-1].FileID
		}
		return ev, true

	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		if q.From == nil {
			return entity.Event{}, false
		}
		ev := entity.Event{
			Kind:         entity.KindCallback,
			UpdateID:     u.UpdateID,
			Actor:        actorOf(q.From),
			CallbackID:   q.ID,
			CallbackData: q.Data,
		}
		if q.Message != nil && q.Message.Chat != nil {
			ev.ChatID = q.Message.Chat.ID
			ev.MessageID = q.Message.MessageID
			ev.Notice = entity.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
			ev.NoticeText = q.Message.Text
		} else {
			ev.ChatID = q.From.ID
		}
		return ev, true
	}
	return entity.Event{}, false
}

func actorOf(u *tgbotapi.User) entity.Actor {
	return entity.Actor{
		ID:       u.ID,
		Username: u.UserName,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}
