package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
	"github.com/oksasatya/pulse-correction-bot/pkg/mailer"
	mailtpl "github.com/oksasatya/pulse-correction-bot/pkg/mailer/templates"
)

type outcome int

const (
	ack     outcome = iota
	drop            // malformed or unrenderable; never redeliver
	requeue         // delivery failed; try once more
)

type worker struct {
	sender      mailer.Sender
	logger      *logrus.Logger
	sendTimeout time.Duration
}

// handle renders and sends one queued job. redelivered jobs that fail again are dropped.
func (w *worker) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		helpers.LogError(w.logger, "bad message", err, nil)
		return drop
	}
	if strings.TrimSpace(job.To) == "" {
		helpers.LogWarn(w.logger, "job without recipient", nil, logrus.Fields{"template": job.Template})
		return drop
	}
	helpers.EnsureRecipient(&job)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			helpers.LogError(w.logger, "render failed", err, logrus.Fields{"template": job.Template})
			return drop
		}
		subject, text, html = s, t, h
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = helpers.SubjectFallback(&job)
	}

	c, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	fields := logrus.Fields{"to": job.To, "template": job.Template}
	if err := w.sender.Send(c, job.To, subject, text, html); err != nil {
		if redelivered {
			helpers.LogError(w.logger, "send failed twice, dropping", err, fields)
			return drop
		}
		helpers.LogWarn(w.logger, "send failed, requeueing", err, fields)
		return requeue
	}
	helpers.LogInfo(w.logger, "email sent", fields)
	return ack
}
