package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"raccoon/internal/db"
	"raccoon/internal/entities"
	"raccoon/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	reservationSubject = "Заявка за почистване - Raccoon Cleaning"
	contactSubject     = "Ново запитване от сайта"
)

// TokenEncoder signs a reservation id into a decline token.
type TokenEncoder interface {
	Encode(id uuid.UUID) (string, error)
}

type SenderService struct {
	mailer          Mailer
	chat            ChatNotifier
	tokens          TokenEncoder
	publicBaseURL   string
	contactReceiver string
	now             func() time.Time
}

func NewSenderService(mailer Mailer, chat ChatNotifier, tokens TokenEncoder, publicBaseURL, contactReceiver string) *SenderService {
	if chat == nil {
		chat = NopNotifier{}
	}
	return &SenderService{
		mailer:          mailer,
		chat:            chat,
		tokens:          tokens,
		publicBaseURL:   strings.TrimRight(publicBaseURL, "/"),
		contactReceiver: contactReceiver,
		now:             time.Now,
	}
}

// DeclineURL builds the self-service cancellation link for a reservation.
func (s *SenderService) DeclineURL(id uuid.UUID) (string, error) {
	tok, err := s.tokens.Encode(id)
	if err != nil {
		return "", fmt.Errorf("failed to sign decline token: %w", err)
	}
	return s.publicBaseURL + "/reservations/decline?token=" + url.QueryEscape(tok), nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// SendReservationEmail sends the requester a summary with a decline link.
func (s *SenderService) SendReservationEmail(ctx context.Context, to string, reservation db.Reservation) error {
	declineURL, err := s.DeclineURL(reservation.ID)
	if err != nil {
		return err
	}

	data := entities.ReservationEmailData{
		Name:        reservation.Name,
		FlatType:    reservation.FlatType,
		Plan:        reservation.PlanLabel(),
		Activities:  reservation.Activities,
		TotalPrice:  reservation.TotalPrice,
		Date:        reservation.Date,
		Time:        reservation.Time,
		DeclineURL:  declineURL,
		CurrentYear: s.now().Year(),
	}
	html, err := render("reservation_email.html", data)
	if err != nil {
		return err
	}
	plain := fmt.Sprintf(
		"Благодарим Ви за заявката!\n\nТип апартамент: %s\nПлан: %s\nОбща цена: %d лв\n\nОткажи заявката: %s\n",
		data.FlatType, data.Plan, data.TotalPrice, declineURL,
	)

	return s.mailer.Send(ctx, EmailMessage{
		To:        to,
		ToName:    reservation.Name,
		Subject:   reservationSubject,
		HTML:      html,
		PlainText: plain,
	})
}

func (s *SenderService) SendChatNotification(ctx context.Context, message string) error {
	return s.chat.Notify(ctx, message)
}

// FormatChatMessage summarises a new reservation for the operators.
func FormatChatMessage(r db.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Нова заявка #%s\n", r.ID.String()[:8])
	fmt.Fprintf(&b, "Име: %s\n", r.Name)
	fmt.Fprintf(&b, "Телефон: %s\n", r.Phone)
	fmt.Fprintf(&b, "Email: %s\n", r.Email)
	fmt.Fprintf(&b, "Адрес: %s\n", r.Address)
	fmt.Fprintf(&b, "Дата: %s %s\n", r.Date, r.Time)
	fmt.Fprintf(&b, "Услуга: %s, %s\n", r.ServiceType, r.FlatType)
	fmt.Fprintf(&b, "Абонамент: %s, план: %s\n", r.Subscription, r.PlanLabel())
	if len(r.Activities) > 0 {
		fmt.Fprintf(&b, "Дейности: %s\n", strings.Join(r.Activities, ", "))
	}
	if r.Info != nil && *r.Info != "" {
		fmt.Fprintf(&b, "Инфо: %s\n", *r.Info)
	}
	fmt.Fprintf(&b, "Цена: %d лв", r.TotalPrice)
	return b.String()
}

// SendContactEmail relays a contact form message to the operator inbox.
func (s *SenderService) SendContactEmail(ctx context.Context, msg entities.ContactMessage) error {
	html, err := render("contact_email.html", entities.ContactEmailData{
		Name:    msg.Name,
		Email:   msg.Email,
		Message: msg.Message,
	})
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, EmailMessage{
		To:      s.contactReceiver,
		Subject: contactSubject,
		HTML:    html,
	}); err != nil {
		return err
	}
	logger.InfoLogger.WithField("from", msg.Email).Info("Contact form message relayed")
	return nil
}
