package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	gomail "gopkg.in/gomail.v2"

	"raccoon/internal/config"
	apperrors "raccoon/internal/errors"
	"raccoon/internal/logger"
)

type EmailMessage struct {
	To        string
	ToName    string
	Subject   string
	HTML      string
	PlainText string
}

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ChatNotifier posts a text message to the operators' chat.
type ChatNotifier interface {
	Notify(ctx context.Context, text string) error
}

// runWithContext bounds a blocking call that does not accept a context.
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type SMTPMailer struct {
	cfg  config.SMTPConfig
	send func(m ...*gomail.Message) error
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &SMTPMailer{cfg: cfg, send: dialer.DialAndSend}
}

func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.cfg.Sender)
	if msg.ToName != "" {
		message.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		message.SetHeader("To", msg.To)
	}
	message.SetHeader("Subject", msg.Subject)
	if msg.PlainText != "" {
		message.SetBody("text/plain", msg.PlainText)
		message.AddAlternative("text/html", msg.HTML)
	} else {
		message.SetBody("text/html", msg.HTML)
	}

	logger.DebugLogger.Debugf("Attempting to connect to SMTP server: %s:%d", m.cfg.Host, m.cfg.Port)
	if err := runWithContext(ctx, func() error { return m.send(message) }); err != nil {
		return &apperrors.TransportError{Channel: "smtp", Err: err}
	}
	logger.InfoLogger.WithField("to", msg.To).Info("Email sent via SMTP")
	return nil
}

type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return &apperrors.TransportError{Channel: "sendgrid", Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &apperrors.TransportError{
			Channel: "sendgrid",
			Err:     fmt.Errorf("unexpected status %d: %s", response.StatusCode, response.Body),
		}
	}
	logger.InfoLogger.WithField("to", msg.To).Infof("Email sent via SendGrid, status %d", response.StatusCode)
	return nil
}

type TwilioNotifier struct {
	api  *openapi.ApiService
	from string
	to   string
}

func NewTwilioNotifier(cfg config.TwilioConfig) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   cfg.AccountSID,
		Password:   cfg.AuthToken,
		AccountSid: cfg.AccountSID,
	})
	if !strings.HasPrefix(cfg.To, "+") && !strings.HasPrefix(cfg.To, "whatsapp:") {
		logger.WarnLogger.Warnf("CHAT_TO %q is neither E.164 nor a whatsapp: address, messages may fail", cfg.To)
	}
	return &TwilioNotifier{api: client.Api, from: cfg.From, to: cfg.To}
}

func (n *TwilioNotifier) Notify(ctx context.Context, text string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(text)

	err := runWithContext(ctx, func() error {
		resp, err := n.api.CreateMessage(params)
		if err != nil {
			return err
		}
		if resp != nil && resp.Sid != nil {
			logger.InfoLogger.Infof("Chat message sent, SID %s", *resp.Sid)
		}
		return nil
	})
	if err != nil {
		return &apperrors.TransportError{Channel: "chat", Err: err}
	}
	return nil
}

// NopNotifier is used when no chat channel is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, text string) error {
	logger.DebugLogger.Debug("Chat notifications disabled, dropping message")
	return nil
}
