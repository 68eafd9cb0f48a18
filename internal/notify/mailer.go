// Package notify sends a mail to the supervisor of a newly received pengajuan.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Notifier is told about new submissions
type Notifier interface {
	SubmissionReceived(ctx context.Context, sub *models.Submission) error
}

// Sender delivers composed messages; *gomail.Dialer satisfies it
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer notifies supervisors by mail
type Mailer struct {
	sender     Sender
	from       string
	recipients map[string]string
	fallback   string
	log        zerolog.Logger
}

// New returns a Mailer when SMTP is configured, otherwise a no-op notifier
func New(cfg *config.MailConfig, log zerolog.Logger) Notifier {
	if !cfg.Enabled() {
		return Noop{}
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewMailer(dialer, cfg.From, cfg.Recipients, cfg.Fallback, log)
}

// NewMailer creates a Mailer over the given sender
func NewMailer(sender Sender, from string, recipients map[string]string, fallback string, log zerolog.Logger) *Mailer {
	return &Mailer{
		sender:     sender,
		from:       from,
		recipients: recipients,
		fallback:   fallback,
		log:        log.With().Str("component", "mailer").Logger(),
	}
}

var bodyTemplate = template.Must(template.New("body").Parse(`Pengajuan baru telah diterima.

No Comtab         : {{.NoComtab}}
Judul             : {{.Judul}}
Tema              : {{.Tema}}
Petugas Pelaksana : {{.PetugasPelaksana}}
Supervisor        : {{.Supervisor}}

Konten:
{{range .ContentItems}}- {{.Nama}} ({{.JenisKonten}})
{{else}}- (belum ada konten)
{{end}}`))

func (m *Mailer) recipientFor(sub *models.Submission) string {
	if addr, ok := m.recipients[strings.TrimSpace(sub.Supervisor)]; ok {
		return addr
	}
	return m.fallback
}

// SubmissionReceived mails the supervisor. Submissions without a known recipient are
// skipped.
func (m *Mailer) SubmissionReceived(ctx context.Context, sub *models.Submission) error {
	to := m.recipientFor(sub)
	if to == "" {
		m.log.Debug().Str("supervisor", sub.Supervisor).Msg("No mail recipient, skipping notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := bodyTemplate.Execute(&body, sub); err != nil {
		return fmt.Errorf("failed to render mail body: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("[Pengajuan] %s - %s", sub.NoComtab, sub.Judul))
	msg.SetBody("text/plain", body.String())

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	m.log.Info().Str("no_comtab", sub.NoComtab).Str("to", to).Msg("Submission notification sent")
	return nil
}

// Noop discards notifications
type Noop struct{}

func (Noop) SubmissionReceived(context.Context, *models.Submission) error { return nil }
