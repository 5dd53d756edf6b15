package services

import (
	"context"
	"errors"
	"net/url"
	"time"

	"chatdesk/internal/logger"
	"chatdesk/internal/utils"
	"chatdesk/internal/utils/helpers"

	"go.uber.org/zap"
)

// ResetMailer delivers the reset link for token to the given address,
// greeting the account holder by username.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, username, token string) error
}

// EmailSender is the transport used by MailQueue; EmailService satisfies it.
type EmailSender interface {
	SendHTML(to []string, subject, body string) error
}

type EmailJob struct {
	To      []string
	Subject string
	Body    string
}

var ErrMailQueueFull = errors.New("mail queue is full")

// MailQueue buffers outgoing mail so requests never wait on SMTP.
type MailQueue struct {
	jobs        chan EmailJob
	sender      EmailSender
	frontendURL string
	resetTTL    time.Duration
}

func NewMailQueue(sender EmailSender, size int, frontendURL string, resetTTL time.Duration) *MailQueue {
	return &MailQueue{
		jobs:        make(chan EmailJob, size),
		sender:      sender,
		frontendURL: frontendURL,
		resetTTL:    resetTTL,
	}
}

func (q *MailQueue) ResetLink(token string) string {
	return q.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (q *MailQueue) SendPasswordReset(_ context.Context, to, username, token string) error {
	job := EmailJob{
		To:      []string{to},
		Subject: "Password reset",
		Body:    helpers.BuildPasswordResetHTML(username, q.ResetLink(token), q.resetTTL),
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrMailQueueFull
	}
}

// StartWorker drains the queue until ctx is cancelled.
func (q *MailQueue) StartWorker(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-q.jobs:
				if err := q.sender.SendHTML(job.To, job.Subject, job.Body); err != nil {
					logger.Log.Error("Failed to send email",
						zap.String("subject", job.Subject),
						zap.Strings("to_masked", maskAll(job.To)),
						zap.Error(err),
					)
				}
			}
		}
	}()
}

// LogSender stands in for SMTP when it is not configured. It records that a
// mail was dropped without writing the body, which carries the token.
type LogSender struct{}

func (LogSender) SendHTML(to []string, subject, _ string) error {
	logger.Log.Warn("SMTP not configured, email dropped",
		zap.String("subject", subject), zap.Strings("to_masked", maskAll(to)))
	return nil
}

func maskAll(addrs []string) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = utils.MaskEmail(a)
	}
	return out
}
