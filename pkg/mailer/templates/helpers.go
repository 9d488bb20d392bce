package templates

import (
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

// NewBaseEmailData fills the common fields and applies the options.
func NewBaseEmailData(appName, typ, recipient, fullName, username string, userID int64, opts ...Option) EmailData {
	d := EmailData{
		AppName:        appName,
		RecipientEmail: recipient,
		Type:           typ,
		UserID:         userID,
		FullName:       fullName,
		Username:       username,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerificationRequestData(appName, recipient, fullName, username string, userID int64, opts ...Option) map[string]any {
	d := NewBaseEmailData(appName, VerificationRequest, recipient, fullName, username, userID, opts...)
	return ToMap(d)
}

func NewVerificationDecidedData(appName, recipient, fullName, username string, userID int64, status, reviewer string, opts ...Option) map[string]any {
	d := NewBaseEmailData(appName, VerificationDecided, recipient, fullName, username, userID, opts...)
	d.Status = status
	d.Reviewer = reviewer
	return ToMap(d)
}
