package application

import "errors"

var (
	// ErrForbiddenDecision is returned when someone outside the reviewers presses a verify button.
	ErrForbiddenDecision = errors.New("actor may not decide verification requests")
	ErrMailQueueDisabled = errors.New("mail queue not configured")
	ErrBadCallbackData   = errors.New("malformed button data")
)
