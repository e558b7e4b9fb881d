package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/notify"
)

type recordingSender struct {
	tickets []notify.TicketMessage
	codes   []notify.CodeMessage
	err     error
}

func (r *recordingSender) NotifyTicket(_ context.Context, m notify.TicketMessage) error {
	r.tickets = append(r.tickets, m)
	return r.err
}

func (r *recordingSender) NotifyVerificationCode(_ context.Context, m notify.CodeMessage) error {
	r.codes = append(r.codes, m)
	return r.err
}

func TestEncodeIsPersistentJSON(t *testing.T) {
	pub, err := encode(notify.CodeMessage{Email: "a@example.com", Code: "123456"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if pub.DeliveryMode != amqp.Persistent || pub.ContentType != "application/json" {
		t.Fatalf("publishing = %+v", pub)
	}
	var back notify.CodeMessage
	if err := json.Unmarshal(pub.Body, &back); err != nil || back.Code != "123456" {
		t.Fatalf("body = %s (%v)", pub.Body, err)
	}
}

func TestHandleDispatchesByQueue(t *testing.T) {
	rs := &recordingSender{}
	c := &Consumer{Sender: rs, Log: logging.Discard()}

	ticket, _ := json.Marshal(notify.TicketMessage{ReservationID: 7, Email: "a@example.com", ExpiresAt: time.Now()})
	if err := c.Handle(context.Background(), TicketIssuedQueue, ticket); err != nil {
		t.Fatalf("ticket: %v", err)
	}
	code, _ := json.Marshal(notify.CodeMessage{Email: "a@example.com", Code: "000111"})
	if err := c.Handle(context.Background(), VerificationCodeQueue, code); err != nil {
		t.Fatalf("code: %v", err)
	}
	if len(rs.tickets) != 1 || rs.tickets[0].ReservationID != 7 || len(rs.codes) != 1 {
		t.Fatalf("recorded tickets=%v codes=%v", rs.tickets, rs.codes)
	}
}

func TestHandlePermanentFailures(t *testing.T) {
	c := &Consumer{Sender: &recordingSender{}, Log: logging.Discard()}
	cases := []struct{ queue, body string }{
		{TicketIssuedQueue, "{not json"},
		{TicketIssuedQueue, `{"email":""}`},
		{VerificationCodeQueue, `{"email":"a@example.com"}`},
		{"other.queue", `{}`},
	}
	for _, tc := range cases {
		if err := c.Handle(context.Background(), tc.queue, []byte(tc.body)); !errors.Is(err, errPermanent) {
			t.Fatalf("%s %s: err = %v", tc.queue, tc.body, err)
		}
	}
}

func TestHandleSendFailureIsRetryable(t *testing.T) {
	c := &Consumer{Sender: &recordingSender{err: errors.New("smtp down")}, Log: logging.Discard()}
	body, _ := json.Marshal(notify.CodeMessage{Email: "a@example.com", Code: "1"})
	err := c.Handle(context.Background(), VerificationCodeQueue, body)
	if err == nil || errors.Is(err, errPermanent) {
		t.Fatalf("err = %v", err)
	}
}
