package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/metrics"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/notify"
	"github.com/iliyamo/festival-ticketing/internal/qr"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

// MaxQuantity bounds the places a single reservation may hold.
const MaxQuantity = 10

// Signer is the part of ticket.Codec used to issue tokens.
type Signer interface {
	Sign(p ticket.Payload) (string, error)
}

// Ticket is everything a holder needs to present a reservation.
type Ticket struct {
	Token     string
	ExpiresAt time.Time
	// Expired tickets of long past events carry no QR data URL.
	Expired bool
	qr.Artifacts
}

// ReservationResult is returned by CreateOrUpdate.
type ReservationResult struct {
	Reservation model.Reservation
	Event       model.Event
	Ticket      Ticket
	Created     bool
	EmailSent   bool
}

// TicketIssuer signs tokens for reservations and renders their QR
// artifacts.  Both the reservation engine and the admin views use it.
type TicketIssuer struct {
	signer   Signer
	renderer *qr.Renderer
	now      func() time.Time
}

func NewTicketIssuer(signer Signer, renderer *qr.Renderer) *TicketIssuer {
	return &TicketIssuer{signer: signer, renderer: renderer, now: time.Now}
}

// Issue signs a fresh token for r.  Nothing is persisted.
func (t *TicketIssuer) Issue(r model.Reservation, ev model.Event) (Ticket, error) {
	exp := ticket.ExpiryFor(ev.EndsAt, t.now())
	tok, err := t.signer.Sign(ticket.Payload{ReservationID: r.ID, TicketCode: r.TicketCode, Exp: exp.Unix()})
	if err != nil {
		return Ticket{}, err
	}
	tk := Ticket{Token: tok, ExpiresAt: time.Unix(exp.Unix(), 0).UTC()}
	tk.Artifacts, err = t.renderer.Artifacts(tok, qr.DefaultSize)
	if errors.Is(err, ticket.ErrExpired) {
		tk.Expired = true
		tk.Artifacts = qr.Artifacts{DeepLink: t.renderer.DeepLink(tok), ImageURL: t.renderer.ImageURL(tok, qr.DefaultSize)}
		err = nil
	}
	if err != nil {
		return Ticket{}, err
	}
	return tk, nil
}

// ReservationService implements self-service reservations.
type ReservationService struct {
	users        UserStore
	events       EventStore
	reservations ReservationStore
	issuer       *TicketIssuer
	notifier     notify.Notifier
	log          *slog.Logger
}

func NewReservationService(users UserStore, events EventStore, reservations ReservationStore, issuer *TicketIssuer, n notify.Notifier, log *slog.Logger) *ReservationService {
	return &ReservationService{users: users, events: events, reservations: reservations, issuer: issuer, notifier: n, log: log}
}

// computeStatus decides the status of a new reservation.  Every
// reservation is confirmed; the event's registration flag does not
// gate it.
func computeStatus(bool) model.ReservationStatus {
	return model.StatusConfirmed
}

// CreateOrUpdate reserves quantity places at the event with slug for
// userID.  Submitting again for the same event only changes the
// quantity; the ticket code and status of the first submission stay.
func (s *ReservationService) CreateOrUpdate(ctx context.Context, userID uint64, slug string, quantity int) (ReservationResult, error) {
	if userID == 0 {
		return ReservationResult{}, newError(KindUnauthorized, "unauthorized", "sign in to reserve")
	}
	if quantity < 1 || quantity > MaxQuantity {
		metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
		return ReservationResult{}, newError(KindInvalidInput, "invalid_quantity", "quantity must be between 1 and 10")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ReservationResult{}, newError(KindInvalidInput, "invalid_slug", "event slug is required")
	}
	ev, err := s.events.GetEventBySlug(ctx, slug)
	if err != nil {
		return ReservationResult{}, notFoundOr(err, "event_not_found", "event not found", "load event")
	}

	code, err := ticket.NewCode()
	if err != nil {
		return ReservationResult{}, internal("generate ticket code", err)
	}
	res := model.Reservation{
		UserID:     userID,
		EventID:    ev.ID,
		Status:     computeStatus(ev.RequiresRegistration),
		Quantity:   quantity,
		TicketCode: code,
	}
	created, err := s.reservations.UpsertReservation(ctx, &res)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ReservationResult{}, newError(KindUnauthorized, "unauthorized", "account no longer exists")
		}
		return ReservationResult{}, internal("upsert reservation", err)
	}

	tk, err := s.issuer.Issue(res, ev)
	if err != nil {
		return ReservationResult{}, internal("issue ticket", err)
	}
	out := ReservationResult{Reservation: res, Event: ev, Ticket: tk, Created: created}
	if created {
		metrics.ReservationsTotal.WithLabelValues("created").Inc()
		out.EmailSent = s.deliver(ctx, res, ev, tk)
	} else {
		metrics.ReservationsTotal.WithLabelValues("updated").Inc()
	}
	return out, nil
}

// deliver sends the ticket to its holder and reports success.
func (s *ReservationService) deliver(ctx context.Context, res model.Reservation, ev model.Event, tk Ticket) bool {
	u, err := s.users.GetUserByID(ctx, res.UserID)
	if err != nil {
		s.log.WarnContext(ctx, "ticket delivery skipped", "reservation_id", res.ID, "err", err)
		metrics.EmailsTotal.WithLabelValues("ticket", "error").Inc()
		return false
	}
	msg := notify.TicketMessage{
		ReservationID: res.ID,
		Email:         u.Email,
		EventTitle:    ev.Title,
		EventSlug:     ev.Slug,
		Quantity:      res.Quantity,
		TicketCode:    res.TicketCode,
		TicketURL:     tk.DeepLink,
		QRImageURL:    tk.ImageURL,
		ExpiresAt:     tk.ExpiresAt,
	}
	if u.Name != nil {
		msg.Name = *u.Name
	}
	err = s.notifier.NotifyTicket(ctx, msg)
	metrics.EmailsTotal.WithLabelValues("ticket", metrics.Result(err)).Inc()
	if err != nil {
		s.log.WarnContext(ctx, "ticket delivery failed", "reservation_id", res.ID, "err", err)
		return false
	}
	return true
}

// UserTicket is one entry of a holder's ticket list.
type UserTicket struct {
	Reservation model.Reservation
	Event       model.Event
	Ticket      Ticket
}

// ListForUser returns the reservations of userID with freshly signed
// tokens.
func (s *ReservationService) ListForUser(ctx context.Context, userID uint64) ([]UserTicket, error) {
	if userID == 0 {
		return nil, newError(KindUnauthorized, "unauthorized", "sign in required")
	}
	rows, err := s.reservations.ListReservationsForUser(ctx, userID)
	if err != nil {
		return nil, internal("list reservations", err)
	}
	out := make([]UserTicket, 0, len(rows))
	for _, row := range rows {
		tk, err := s.issuer.Issue(row.Reservation, row.Event)
		if err != nil {
			return nil, internal("issue ticket", err)
		}
		out = append(out, UserTicket{Reservation: row.Reservation, Event: row.Event, Ticket: tk})
	}
	return out, nil
}
