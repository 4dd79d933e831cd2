package notifier

import (
	"bytes"
	"context"
	"embed"
	"strings"
	"text/template"
	"time"

	htmltemplate "html/template"

	"github.com/cinearenas/booking-engine/internal/domain"
	mail "github.com/go-mail/mail/v2"
)

//go:embed templates
var templateFS embed.FS

// EmailNotifier delivers "reservation confirmed" messages over SMTP. It
// implements domain.Notifier; the engine treats delivery as best-effort
// and never rolls back a commit over it.
type EmailNotifier struct {
	dialer *mail.Dialer
	sender string
}

func NewEmailNotifier(host string, port int, username, password, sender string) *EmailNotifier {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &EmailNotifier{
		dialer: dialer,
		sender: sender,
	}
}

type confirmationData struct {
	MovieTitle string
	HallName   string
	Format     string
	StartsAt   string
	Seats      string
	Amount     string
}

func (n *EmailNotifier) ReservationConfirmed(ctx context.Context, confirmation domain.ReservationConfirmation) error {
	data := confirmationData{
		MovieTitle: confirmation.MovieTitle,
		HallName:   confirmation.HallName,
		Format:     confirmation.Format,
		StartsAt:   confirmation.StartsAt.Format("Jan 2, 2006 15:04"),
		Seats:      strings.Join(domain.SeatLabels(confirmation.Seats), ", "),
		Amount:     confirmation.Amount.StringFixed(2),
	}

	textTmpl, err := template.ParseFS(templateFS, "templates/reservation_confirmed.tmpl")
	if err != nil {
		return err
	}

	subject := new(bytes.Buffer)
	err = textTmpl.ExecuteTemplate(subject, "subject", data)
	if err != nil {
		return err
	}

	plainBody := new(bytes.Buffer)
	err = textTmpl.ExecuteTemplate(plainBody, "plainBody", data)
	if err != nil {
		return err
	}

	htmlTmpl, err := htmltemplate.ParseFS(templateFS, "templates/reservation_confirmed.tmpl")
	if err != nil {
		return err
	}

	htmlBody := new(bytes.Buffer)
	err = htmlTmpl.ExecuteTemplate(htmlBody, "htmlBody", data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", confirmation.Recipient)
	msg.SetHeader("From", n.sender)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return n.dialer.DialAndSend(msg)
}
