package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/festival-ticketing/internal/metrics"
	"github.com/iliyamo/festival-ticketing/internal/notify"
)

// errPermanent marks messages that can never succeed; they are
// rejected without requeue.
var errPermanent = errors.New("permanent failure")

// Consumer drains the mail queues and hands every message to Sender.
type Consumer struct {
	URL      string
	Sender   notify.Notifier
	Log      *slog.Logger
	Prefetch int
}

// Run keeps consuming until ctx is cancelled, reconnecting with
// exponential backoff (capped at 30s) whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("mail consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("mail consumer: consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.Log.Warn("mail consumer: set QoS failed", "err", err)
	}

	merged := make(chan amqp.Delivery)
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go func() {
			for d := range msgs {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			return fmt.Errorf("channel closed: %v", amqpErr)
		case d := <-merged:
			if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				requeue := !errors.Is(err, errPermanent)
				c.Log.Warn("mail consumer: handle message failed", "queue", d.RoutingKey, "requeue", requeue, "err", err)
				_ = d.Nack(false, requeue && !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes body according to queue and sends it.  Undecodable
// bodies and unknown queues are wrapped in errPermanent.
func (c *Consumer) Handle(ctx context.Context, queue string, body []byte) error {
	var (
		kind string
		err  error
	)
	switch queue {
	case TicketIssuedQueue:
		kind = "ticket"
		m, derr := decodeTicket(body)
		if derr != nil {
			return fmt.Errorf("%w: %v", errPermanent, derr)
		}
		err = c.Sender.NotifyTicket(ctx, m)
	case VerificationCodeQueue:
		kind = "verification_code"
		m, derr := decodeCode(body)
		if derr != nil {
			return fmt.Errorf("%w: %v", errPermanent, derr)
		}
		err = c.Sender.NotifyVerificationCode(ctx, m)
	default:
		return fmt.Errorf("%w: unknown queue %q", errPermanent, queue)
	}
	metrics.EmailsTotal.WithLabelValues(kind, metrics.Result(err)).Inc()
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
