package mailer

import (
	"errors"
	"strings"

	"twinai-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("smtp is not configured")

type IEmailService interface {
	Send(to, subject, body string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      dialer
	senderEmail string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail string, log logger.ILogger) IEmailService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	var d dialer
	if host != "" {
		d = gomail.NewDialer(host, port, username, password)
	}
	if senderEmail == "" {
		senderEmail = username
	}
	return &emailService{dialer: d, senderEmail: senderEmail, logger: log}
}

func (s *emailService) Send(to, subject, body string) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if html := toHTML(body); html != "" {
		m.AddAlternative("text/html", html)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send email", map[string]interface{}{
			"to":    to,
			"error": err,
		})
		return err
	}

	s.logger.Info("MAILER", "Email sent", map[string]interface{}{"to": to, "subject": subject})
	return nil
}

func toHTML(body string) string {
	paragraphs := strings.Split(strings.TrimSpace(body), "\n\n")
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; color: #333;">`)
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(htmlEscape(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</div>")
	return b.String()
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string { return htmlReplacer.Replace(s) }
