package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/pulse-correction-bot/pkg/mailer"
	mailtpl "github.com/oksasatya/pulse-correction-bot/pkg/mailer/templates"
)

// SubjectFallback is used when a job carries neither a subject nor a template.
func SubjectFallback(job *mailer.EmailJob) string {
	switch strings.ToLower(job.Template) {
	case mailtpl.VerificationRequest:
		return "Новая заявка на верификацию"
	case mailtpl.VerificationDecided:
		return "Заявка на верификацию обработана"
	default:
		return "Уведомление"
	}
}

// EnsureRecipient copies job.To into the template data when the publisher left it out.
func EnsureRecipient(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}
