package notification

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/smtp"
	"strings"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	BaseURL  string
}

type EmailService struct {
	config EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config, send: smtp.SendMail}
}

// Send implements Sender.
func (s *EmailService) Send(_ context.Context, msg Message) error {
	switch msg.Kind {
	case KindConfirmation:
		return s.SendConfirmationEmail(msg.Email, msg.Username, ConfirmationURL(s.config.BaseURL, msg.Token))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
}

func (s *EmailService) SendConfirmationEmail(to, username, confirmURL string) error {
	subject := "Confirmation of registration"
	body := fmt.Sprintf(`<html><body>
		<h2>Welcome, %s!</h2>
		<p>Thank you for registering. Please confirm your email address to activate your account.</p>
		<p><a href="%s">Click here to confirm your registration</a></p>
		<p>Or copy this link to your browser: %s</p>
	</body></html>`, html.EscapeString(username), confirmURL, confirmURL)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return s.send(addr, auth, s.config.From, []string{to}, []byte(msg))
}

// ConfirmationURL builds the link that consumes a confirmation token.
func ConfirmationURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/confirmation/" + token
}

// LogSender logs messages instead of delivering them. Used when SMTP is not
// configured.
type LogSender struct {
	Logger  *slog.Logger
	BaseURL string
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("smtp not configured, notification not sent",
		"kind", msg.Kind,
		"account_id", msg.AccountID,
		"email", msg.Email,
		"link", ConfirmationURL(s.BaseURL, msg.Token),
	)
	return nil
}
