package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/memstore"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/notify"
	"github.com/iliyamo/festival-ticketing/internal/qr"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/ticket"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

var (
	_ Store = (*memstore.Store)(nil)
	_ Store = (*repository.Store)(nil)
)

type recordingNotifier struct {
	mu      sync.Mutex
	tickets []notify.TicketMessage
	codes   []notify.CodeMessage
	err     error
}

func (n *recordingNotifier) NotifyTicket(_ context.Context, m notify.TicketMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tickets = append(n.tickets, m)
	return n.err
}

func (n *recordingNotifier) NotifyVerificationCode(_ context.Context, m notify.CodeMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, m)
	return n.err
}

func (n *recordingNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		t.Fatal("no verification code was sent")
	}
	return n.codes[len(n.codes)-1].Code
}

type failingAuditStore struct{ calls int }

func (f *failingAuditStore) InsertAudit(context.Context, *model.AuditLog) error {
	f.calls++
	return errors.New("audit table is gone")
}

func (f *failingAuditStore) ListAudit(context.Context, model.AuditFilter) ([]model.AuditLog, int, error) {
	return nil, 0, errors.New("audit table is gone")
}

type env struct {
	store    *memstore.Store
	codec    *ticket.Codec
	notifier *recordingNotifier
	audit    *AuditWriter
	auth     *AuthService
	res      *ReservationService
	checkIn  *CheckInService
	admin    *AdminService
	catalog  *CatalogService
}

func newEnv(t *testing.T) *env {
	return newEnvWithAudit(t, nil)
}

func newEnvWithAudit(t *testing.T, auditStore AuditStore) *env {
	t.Helper()
	st := memstore.New()
	codec, err := ticket.NewCodec("test-ticket-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if auditStore == nil {
		auditStore = st
	}
	log := logging.Discard()
	n := &recordingNotifier{}
	issuer := NewTicketIssuer(codec, qr.NewRenderer("http://fest.test", codec))
	audit := NewAuditWriter(auditStore, log)
	return &env{
		store:    st,
		codec:    codec,
		notifier: n,
		audit:    audit,
		auth: NewAuthService(st, st, st, n, AuthConfig{
			JWTSecret: "jwt-secret", AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: 4,
		}, log),
		res:     NewReservationService(st, st, st, issuer, n, log),
		checkIn: NewCheckInService(codec, st, st, st, st, audit),
		admin:   NewAdminService(st, audit, issuer, 4, log),
		catalog: NewCatalogService(st, st),
	}
}

func (e *env) user(t *testing.T, email, phone string, role model.Role) model.User {
	t.Helper()
	hash, err := utils.HashPassword("password123", 4)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	u := model.User{Email: email, Phone: phone, PasswordHash: hash, Role: role, EmailVerifiedAt: &now}
	if err := e.store.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func (e *env) event(t *testing.T, slug string) model.Event {
	t.Helper()
	ev := model.Event{Slug: slug, Title: slug, RequiresRegistration: true}
	if err := e.store.CreateEvent(context.Background(), &ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return ev
}

func wantKind(t *testing.T, err error, kind Kind, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s/%s, got nil", kind, reason)
	}
	se := AsError(err)
	if se.Kind != kind || (reason != "" && se.Reason != reason) {
		t.Fatalf("got %s/%s (%v), want %s/%s", se.Kind, se.Reason, err, kind, reason)
	}
}
