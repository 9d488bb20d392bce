package entity

// AlbumBatch is the unit handed from the album aggregator to the order submitter.
// Events are in arrival order; Key is empty for a standalone photo.
type AlbumBatch struct {
	Key    string
	Events []Event
}

// First returns the first event of the batch.
func (b AlbumBatch) First() Event { return b.Events[0] }

// Description returns the first non-empty free text in the batch.
func (b AlbumBatch) Description() string {
	for i := range b.Events {
		if t := b.Events[i].FreeText(); t != "" {
			return t
		}
	}
	return ""
}

// Photo is one fetched image of a submission.
type Photo struct {
	Filename string
	Content  []byte
}

// Submission is the multi-part payload sent to the backend for one batch.
type Submission struct {
	UserID         int64
	ChatID         int64
	Username       string
	FullName       string
	Description    string
	ReplaceOrderID *int64
	UserMessageID  int
	Photos         []Photo
}

// OrderReceipt is the backend answer to an accepted submission.
type OrderReceipt struct {
	ID int64 `json:"id"`
}

// ConfirmReceipt is the backend answer to a user confirmation.
type ConfirmReceipt struct {
	UserMessageID int `json:"user_message_id"`
}

// ConversationKey scopes per-conversation state such as the pending replace target.
type ConversationKey struct {
	ChatID int64
	UserID int64
}
