// Package queue moves mail deliveries through RabbitMQ.  The HTTP
// server publishes; cmd/mailer consumes and sends over SMTP.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/festival-ticketing/internal/notify"
)

// Queue names.  Both are durable and use the default exchange.
const (
	TicketIssuedQueue     = "ticket.issued"
	VerificationCodeQueue = "auth.verification_code"
)

// Queues lists every queue the mailer consumes.
var Queues = []string{TicketIssuedQueue, VerificationCodeQueue}

func encode(v any) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func decodeTicket(body []byte) (notify.TicketMessage, error) {
	var m notify.TicketMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("unmarshal ticket message: %w", err)
	}
	if m.Email == "" || m.ReservationID == 0 {
		return m, fmt.Errorf("ticket message missing email or reservation id")
	}
	return m, nil
}

func decodeCode(body []byte) (notify.CodeMessage, error) {
	var m notify.CodeMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("unmarshal code message: %w", err)
	}
	if m.Email == "" || m.Code == "" {
		return m, fmt.Errorf("code message missing email or code")
	}
	return m, nil
}
