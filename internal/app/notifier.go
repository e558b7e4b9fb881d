package app

import (
	"log/slog"

	"github.com/iliyamo/festival-ticketing/internal/config"
	"github.com/iliyamo/festival-ticketing/internal/notify"
	"github.com/iliyamo/festival-ticketing/internal/queue"
)

// Mailer returns the SMTP mailer when SMTP is configured.  Outside
// production an unconfigured relay logs messages; in production it
// drops them.
func Mailer(cfg config.Config, log *slog.Logger) notify.Mailer {
	switch {
	case cfg.SMTP.Enabled():
		s := cfg.SMTP
		return notify.NewSMTPMailer(s.Host, s.Port, s.Username, s.Password, s.From)
	case cfg.IsProduction():
		log.Warn("SMTP is not configured; email delivery is disabled")
		return notify.NopMailer{}
	default:
		return notify.LogMailer{Log: log}
	}
}

// Notifier picks the delivery path for the API server.  With a
// broker URL messages are queued for cmd/mailer; otherwise they are
// sent inline.  The returned close func releases the broker
// connection.
func Notifier(cfg config.Config, log *slog.Logger) (notify.Notifier, func() error) {
	if cfg.RabbitMQURL != "" {
		p := queue.NewPublisher(cfg.RabbitMQURL, log)
		return p, p.Close
	}
	return notify.NewMailNotifier(Mailer(cfg, log)), func() error { return nil }
}
