package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/config"
)

// sendMailFunc matches smtp.SendMail so tests can intercept delivery.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends a plain-text run summary over SMTP.
type EmailNotifier struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewEmail(cfg config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *EmailNotifier) Notify(_ context.Context, event Event) error {
	if e.cfg.Host == "" || len(e.cfg.Recipients) == 0 {
		zap.L().Debug("notifier: email not configured, skipping")
		return nil
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	msg := buildMessage(e.cfg.From, e.cfg.Recipients, event)

	if err := e.sendMail(addr, auth, e.cfg.From, e.cfg.Recipients, msg); err != nil {
		return eris.Wrapf(err, "notifier: send email via %s", addr)
	}
	zap.L().Info("notifier: email sent",
		zap.String("run_id", event.RunID),
		zap.Int("recipients", len(e.cfg.Recipients)),
	)
	return nil
}

func buildMessage(from string, to []string, event Event) []byte {
	subject := fmt.Sprintf("LinkedIn ingestion %s: run %s", event.Kind, event.RunID)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Run:    %s\n", event.RunID)
	fmt.Fprintf(&b, "Source: %s\n", event.SourcePath)
	fmt.Fprintf(&b, "Status: %s\n", event.Status)
	if event.Error != "" {
		fmt.Fprintf(&b, "Error:  %s\n", event.Error)
	}
	fmt.Fprintf(&b, "\nParticipants: %d found, %d inserted\n", event.Counters.ParticipantsFound, event.Counters.ParticipantsInserted)
	fmt.Fprintf(&b, "Conversations: %d found, %d inserted\n", event.Counters.ConversationsFound, event.Counters.ConversationsInserted)
	fmt.Fprintf(&b, "Messages: %d found, %d inserted\n", event.Counters.MessagesFound, event.Counters.MessagesInserted)
	if event.ReportText != "" {
		b.WriteString("\n" + event.ReportText)
	}
	if event.PackagePath != "" {
		fmt.Fprintf(&b, "\nPackage: %s\n", event.PackagePath)
	}
	return []byte(b.String())
}
