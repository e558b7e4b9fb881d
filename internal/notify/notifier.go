package notify

import (
	"bytes"
	"context"
	"text/template"
	"time"
)

// TicketMessage describes a ticket to deliver to its holder.  It is
// also the body of the queued ticket.issued message.
type TicketMessage struct {
	ReservationID uint64    `json:"reservation_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	EventTitle    string    `json:"event_title"`
	EventSlug     string    `json:"event_slug"`
	Quantity      int       `json:"quantity"`
	TicketCode    string    `json:"ticket_code"`
	TicketURL     string    `json:"ticket_url"`
	QRImageURL    string    `json:"qr_image_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// CodeMessage carries a registration verification code.
type CodeMessage struct {
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier is what the services call.  Implementations either send
// right away (MailNotifier) or hand the message to a broker.
type Notifier interface {
	NotifyTicket(ctx context.Context, msg TicketMessage) error
	NotifyVerificationCode(ctx context.Context, msg CodeMessage) error
}

var (
	ticketTmpl = template.Must(template.New("ticket").Parse(`Hello{{if .Name}} {{.Name}}{{end}},

your reservation for "{{.EventTitle}}" is confirmed ({{.Quantity}} ticket{{if gt .Quantity 1}}s{{end}}).

Ticket code: {{.TicketCode}}
Show this QR code at the entrance: {{.QRImageURL}}
Ticket link: {{.TicketURL}}

The ticket is valid until {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.
`))

	codeTmpl = template.Must(template.New("code").Parse(`Hello{{if .Name}} {{.Name}}{{end}},

your verification code is {{.Code}}.
It expires at {{.ExpiresAt.Format "15:04 MST"}}.
`))
)

// MailNotifier renders messages and sends them through a Mailer.
type MailNotifier struct {
	Mailer Mailer
}

func NewMailNotifier(m Mailer) *MailNotifier { return &MailNotifier{Mailer: m} }

func (n *MailNotifier) NotifyTicket(ctx context.Context, msg TicketMessage) error {
	body, err := render(ticketTmpl, msg)
	if err != nil {
		return err
	}
	return n.Mailer.Send(ctx, Message{To: msg.Email, Subject: "Your ticket: " + msg.EventTitle, Body: body})
}

func (n *MailNotifier) NotifyVerificationCode(ctx context.Context, msg CodeMessage) error {
	body, err := render(codeTmpl, msg)
	if err != nil {
		return err
	}
	return n.Mailer.Send(ctx, Message{To: msg.Email, Subject: "Your verification code", Body: body})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
