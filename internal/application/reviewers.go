package application

import (
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// Reviewers describes who may approve users and where verification notices go.
type Reviewers struct {
	// ChatID is the reviewer chat; zero when not configured.
	ChatID   int64
	AdminIDs []int64
	Emails   []string
}

// IsAdmin reports whether id is a configured administrator.
func (r Reviewers) IsAdmin(id int64) bool {
	for _, a := range r.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// CanDecide reports whether a press by actor inside chatID may approve or reject users.
func (r Reviewers) CanDecide(actor int64, chatID int64) bool {
	return r.IsAdmin(actor) || (r.ChatID != 0 && chatID == r.ChatID)
}

// Destinations returns the reviewer chat, every administrator and every e-mail address, deduplicated.
func (r Reviewers) Destinations() []entity.ReviewerDestination {
	var out []entity.ReviewerDestination
	seen := map[int64]struct{}{}
	addChat := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, entity.ReviewerDestination{Kind: entity.DestinationChat, ChatID: id})
	}
	addChat(r.ChatID)
	for _, id := range r.AdminIDs {
		addChat(id)
	}
	emails := map[string]struct{}{}
	for _, e := range r.Emails {
		if _, ok := emails[e]; ok || e == "" {
			continue
		}
		emails[e] = struct{}{}
		out = append(out, entity.ReviewerDestination{Kind: entity.DestinationEmail, Email: e})
	}
	return out
}
