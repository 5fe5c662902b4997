package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"pdf-store-backend/internal/config"
	"pdf-store-backend/internal/domain/ports/adapter"
	"pdf-store-backend/internal/infra/metrics"
)

var _ adapter.Mailer = (*SMTPMailer)(nil)

// SMTPMailer delivers the download-link mail over plain SMTP with AUTH.
// Each send dials a fresh connection; volume is a handful of mails per
// sale, not a queue worth pooling for.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	log      *zerolog.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg *config.EmailConfig, logger *zerolog.Logger) *SMTPMailer {
	l := logger.With().Str("component", "SMTPMailer").Logger()
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      &l,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) SendDownloadLink(ctx context.Context, toEmail, toName, downloadURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.from
	if from == "" {
		from = m.username
	}
	fromHeader := from
	if m.fromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", m.fromName, from)
	}

	msg := buildDownloadMail(fromHeader, toEmail, toName, downloadURL)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	if err := m.send(addr, auth, from, []string{toEmail}, msg); err != nil {
		metrics.EmailsSent.WithLabelValues("error").Inc()
		m.log.Error().Err(err).Str("to", toEmail).Msg("smtp send failed")
		return fmt.Errorf("send download mail: %w", err)
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
	m.log.Info().Str("to", toEmail).Msg("download link sent")
	return nil
}

// buildDownloadMail renders a multipart/alternative message: plain text
// first, then a minimal HTML variant with the link as a button.
func buildDownloadMail(fromHeader, toEmail, toName, downloadURL string) []byte {
	name := strings.TrimSpace(toName)
	if name == "" {
		name = "there"
	}

	const boundary = "mail-boundary-0a1b2c"
	var b strings.Builder
	write := func(s string) { b.WriteString(s); b.WriteString("\r\n") }

	write("From: " + fromHeader)
	write("To: " + toEmail)
	write("Subject: Your PDF download is ready")
	write("MIME-Version: 1.0")
	write(`Content-Type: multipart/alternative; boundary="` + boundary + `"`)
	write("")

	write("--" + boundary)
	write("Content-Type: text/plain; charset=UTF-8")
	write("")
	write("Hi " + name + ",")
	write("")
	write("Thanks for your purchase. Your download link is below.")
	write("It works once and expires in 24 hours:")
	write("")
	write(downloadURL)
	write("")

	write("--" + boundary)
	write("Content-Type: text/html; charset=UTF-8")
	write("")
	write("<p>Hi " + name + ",</p>")
	write("<p>Thanks for your purchase. Your download link is below. " +
		"It works <strong>once</strong> and expires in <strong>24 hours</strong>.</p>")
	write(`<p><a href="` + downloadURL + `">Download your PDF</a></p>`)
	write("")

	write("--" + boundary + "--")
	return []byte(b.String())
}
