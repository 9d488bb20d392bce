package mailer

// EmailJob is the JSON payload put on the notify queue.
// Either set Subject/Text/HTML directly or name a Template and pass its Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "verification_request" or "verification_decided"
	Data     map[string]any `json:"data,omitempty"`
}
