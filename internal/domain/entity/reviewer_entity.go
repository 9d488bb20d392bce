package entity

import "strconv"

// DestinationKind tells how a reviewer destination is reached.
type DestinationKind string

const (
	DestinationChat  DestinationKind = "chat"
	DestinationEmail DestinationKind = "email"
)

// ReviewerDestination is a place that receives verification notices.
type ReviewerDestination struct {
	Kind   DestinationKind
	ChatID int64
	Email  string
}

func (d ReviewerDestination) String() string {
	if d.Kind == DestinationEmail {
		return "email:" + d.Email
	}
	return "chat:" + strconv.FormatInt(d.ChatID, 10)
}

// DeliveryResult is the outcome of delivering one notice to one destination.
type DeliveryResult struct {
	Destination ReviewerDestination
	Err         error
}

// Delivered reports whether the notice reached the destination.
func (r DeliveryResult) Delivered() bool { return r.Err == nil }
