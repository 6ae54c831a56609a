// Package mailer sends operational alert emails over plain SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the server and sender settings for outgoing mail.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SendEmail sends an email through the configured SMTP server. The
// Content-Type is inferred from the body: basic HTML tags switch it to
// text/html.
func SendEmail(cfg SMTPConfig, recipient, subject, body string) error {
	if cfg.Host == "" || cfg.Port == "" {
		return fmt.Errorf("SMTP host and port must be configured")
	}
	if cfg.From == "" {
		return fmt.Errorf("sender email address cannot be empty")
	}
	if recipient == "" {
		return fmt.Errorf("recipient email address cannot be empty")
	}
	if subject == "" {
		return fmt.Errorf("email subject cannot be empty")
	}

	contentType := "text/plain; charset=UTF-8"
	lower := strings.ToLower(body)
	if strings.Contains(lower, "<html>") || strings.Contains(lower, "<p>") {
		contentType = "text/html; charset=UTF-8"
	}

	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: %s\r\n"+
		"\r\n"+
		"%s\r\n", recipient, cfg.From, subject, contentType, body))

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	addr := cfg.Host + ":" + cfg.Port
	if err := smtp.SendMail(addr, auth, cfg.From, []string{recipient}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
