package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/festival-ticketing/internal/notify"
)

// Publisher implements notify.Notifier by queueing messages.  The
// connection is opened lazily and re-opened after a failure, so a
// broker outage only fails the deliveries attempted during it.
type Publisher struct {
	url string
	log *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ notify.Notifier = (*Publisher)(nil)

func NewPublisher(url string, log *slog.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

func (p *Publisher) NotifyTicket(ctx context.Context, msg notify.TicketMessage) error {
	return p.publish(ctx, TicketIssuedQueue, msg)
}

func (p *Publisher) NotifyVerificationCode(ctx context.Context, msg notify.CodeMessage) error {
	return p.publish(ctx, VerificationCodeQueue, msg)
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	pub, err := encode(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq publish failed", "queue", queue, "err", err)
		p.resetLocked()
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	return nil
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("queue declare %s: %w", q, err)
		}
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
