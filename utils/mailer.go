package utils

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/lvt17/planex-be/config"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

// ComposeMail renders a plain-text RFC 5322 message.
func ComposeMail(fromName, from, to, subject, body string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: fromName, Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SendMail delivers one message through the configured SMTP relay.
func SendMail(to, subject, body string) error {
	cfg := config.Get()
	if !cfg.MailEnabled() {
		return fmt.Errorf("mail is not configured")
	}
	msg, err := ComposeMail(cfg.MailFromName, cfg.MailFrom, to, subject, body)
	if err != nil {
		return fmt.Errorf("compose mail: %w", err)
	}
	addr := net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort)
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return smtp.SendMail(addr, auth, cfg.MailFrom, []string{to}, msg)
}

// SendMailAsync sends in the background. Failures are logged, never returned.
func SendMailAsync(to, subject, body string) {
	if !config.Get().MailEnabled() || to == "" {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("mail send panicked", zap.Any("panic", r))
			}
		}()
		if err := SendMail(to, subject, body); err != nil {
			zap.L().Warn("mail send failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	}()
}
