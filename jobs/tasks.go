package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeOrphanSweep is the task type for repairing half-finished
	// registrations: identities created without a matching profile.
	TaskTypeOrphanSweep = "users:orphan_sweep"
	// TaskTypePruneAuth is the task type for clearing expired sessions
	// and password reset tokens.
	TaskTypePruneAuth = "auth:prune"
)

// orphanGracePeriod leaves in-flight registrations alone.
const orphanGracePeriod = time.Hour

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// Mailer delivers a single message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer talks to a plain SMTP relay such as Mailpit.
type SMTPMailer struct {
	Addr string
	From string
}

// Send delivers the message through the relay.
func (m SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg))
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks.
func NewSendEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
			logger.Error("send email", slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
		return nil
	}
}

// NewOrphanSweepHandler deletes identities that never got a profile.
// Registration writes the identity first and compensates on profile
// failure; when even the compensation fails the identity row lingers.
// This sweep is the backstop that makes those principals sign-in-proof
// again.
func NewOrphanSweepHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tag, err := pool.Exec(ctx, `
			DELETE FROM identities i
			WHERE NOT EXISTS (SELECT 1 FROM user_profiles p WHERE p.id = i.id)
			  AND i.created_at < now() - $1::interval`,
			orphanGracePeriod.String())
		if err != nil {
			logger.Error("orphan sweep", slog.Any("error", err))
			return err
		}
		if tag.RowsAffected() > 0 {
			logger.Warn("removed orphaned identities", slog.Int64("count", tag.RowsAffected()))
		}
		return nil
	}
}

// NewPruneAuthHandler clears expired sessions and stale reset tokens.
func NewPruneAuthHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		if _, err := pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < now()`); err != nil {
			logger.Error("prune sessions", slog.Any("error", err))
			return err
		}
		if _, err := pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at < now() OR consumed_at IS NOT NULL`); err != nil {
			logger.Error("prune password resets", slog.Any("error", err))
			return err
		}
		return nil
	}
}
