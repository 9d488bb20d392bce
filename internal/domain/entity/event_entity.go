package entity

import (
	"regexp"
	"strings"
)

// BootstrapCommand is the command reachable regardless of verification status.
const BootstrapCommand = "start"

// Actor identifies who produced an event.
type Actor struct {
	ID       int64
	Username string
	FullName string
}

// Handle returns "@username" or the full name when the actor has no username.
func (a Actor) Handle() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return a.FullName
}

// EventKind distinguishes ordinary messages from button presses.
type EventKind uint8

const (
	KindMessage EventKind = iota + 1
	KindCallback
)

// MessageRef points at a message the bot can edit or reply to.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the reference is unset.
func (r MessageRef) IsZero() bool { return r.ChatID == 0 && r.MessageID == 0 }

// Event is one inbound update, already stripped of transport-specific types.
type Event struct {
	Kind      EventKind
	UpdateID  int
	Actor     Actor
	ChatID    int64
	MessageID int

	Text    string
	Caption string

	// PhotoFileID is the transport reference of the largest photo size, empty when no photo.
	PhotoFileID string
	// MediaGroupID is the album correlation key, empty for standalone messages.
	MediaGroupID string

	// Button press fields.
	CallbackID   string
	CallbackData string
	// Notice is the message that carried the pressed button and NoticeText its current text.
	Notice     MessageRef
	NoticeText string
}

// IsMessage reports whether the event is an ordinary message.
func (e *Event) IsMessage() bool { return e.Kind == KindMessage }

// IsCallback reports whether the event is a button press.
func (e *Event) IsCallback() bool { return e.Kind == KindCallback }

// HasPhoto reports whether the message carries a photo.
func (e *Event) HasPhoto() bool { return e.Kind == KindMessage && e.PhotoFileID != "" }

// Command returns the bot command without the leading slash and @botname suffix,
// or "" when the message is not a command.
func (e *Event) Command() string {
	if e.Kind != KindMessage || !strings.HasPrefix(e.Text, "/") {
		return ""
	}
	word := strings.Fields(e.Text)[0]
	word = strings.TrimPrefix(word, "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	return word
}

// IsBootstrap reports whether the event is the bootstrap command.
func (e *Event) IsBootstrap() bool { return e.Command() == BootstrapCommand }

var numericOnly = regexp.MustCompile(`^\d+$`)

// IsNumericOnly reports whether the message text is a bare number.
func (e *Event) IsNumericOnly() bool {
	return e.Kind == KindMessage && e.PhotoFileID == "" && numericOnly.MatchString(e.Text)
}

// FreeText returns the caption of a photo message or the text of a plain message.
func (e *Event) FreeText() string {
	if e.Caption != "" {
		return e.Caption
	}
	if e.PhotoFileID != "" {
		return ""
	}
	return e.Text
}

// Preview returns up to n runes of the visible content, used for logging.
func (e *Event) Preview(n int) string {
	s := e.Text
	if s == "" {
		s = e.Caption
	}
	if s == "" {
		s = "[media]"
	}
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
