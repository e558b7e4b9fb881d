package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/config"
	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/memstore"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/notify"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

type codeCatcher struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *codeCatcher) NotifyTicket(context.Context, notify.TicketMessage) error { return nil }

func (c *codeCatcher) NotifyVerificationCode(_ context.Context, m notify.CodeMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[m.Email] = m.Code
	return nil
}

func (c *codeCatcher) code(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

type testServer struct {
	t     *testing.T
	e     *echo.Echo
	store *memstore.Store
	mail  *codeCatcher
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	st := memstore.New()
	mail := &codeCatcher{codes: map[string]string{}}
	e, err := New(Deps{
		Config: config.Config{
			Env:            "test",
			BaseURL:        "http://fest.test",
			JWTSecret:      "jwt-secret",
			TicketSecret:   "ticket-secret",
			AccessTTLMin:   15,
			RefreshTTLDays: 30,
			BcryptCost:     4,
		},
		Store:    st,
		Notifier: mail,
		Log:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testServer{t: t, e: e, store: st, mail: mail}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, code int) map[string]any {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status %d want %d: %s", rec.Code, code, rec.Body)
	}
	if rec.Body.Len() == 0 {
		return nil
	}
	return decode(t, rec)
}

func (s *testServer) staff(email, phone string, role model.Role) {
	s.t.Helper()
	hash, err := utils.HashPassword("staff-password", 4)
	if err != nil {
		s.t.Fatal(err)
	}
	now := time.Now().UTC()
	u := model.User{Email: email, Phone: phone, PasswordHash: hash, Role: role, EmailVerifiedAt: &now}
	if err := s.store.CreateUser(context.Background(), &u); err != nil {
		s.t.Fatal(err)
	}
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	body := expect(s.t, s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, ""), http.StatusOK)
	return body["access"].(map[string]any)["token"].(string)
}

func (s *testServer) seedEvent(slug string) {
	s.t.Helper()
	ends := time.Now().Add(48 * time.Hour).UTC()
	ev := model.Event{Slug: slug, Title: "Open Night", RequiresRegistration: true, EndsAt: &ends}
	if err := s.store.CreateEvent(context.Background(), &ev); err != nil {
		s.t.Fatal(err)
	}
}

func TestEndToEndReservationAndCheckIn(t *testing.T) {
	s := newServer(t)
	s.seedEvent("open-night")
	s.staff("door@fest.test", "+15550009", model.RoleApprover)

	expect(t, s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ada", "phone": "+15550001", "email": "Ada@Example.com", "password": "correct-horse",
	}, ""), http.StatusCreated)

	// Unverified accounts cannot sign in yet.
	body := expect(t, s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "correct-horse"}, ""), http.StatusForbidden)
	if body["error"] != "email_not_verified" {
		t.Fatalf("login before verify: %v", body)
	}

	code := s.mail.code("ada@example.com")
	expect(t, s.do(http.MethodPost, "/api/auth/register/verify", map[string]string{"email": "ada@example.com", "code": code}, ""), http.StatusOK)
	token := s.login("ada@example.com", "correct-horse")

	first := expect(t, s.do(http.MethodPost, "/api/reservations", map[string]any{"slug": "open-night", "quantity": 2}, token), http.StatusCreated)
	second := expect(t, s.do(http.MethodPost, "/api/reservations", map[string]any{"slug": "open-night", "quantity": 2}, token), http.StatusOK)
	r1, r2 := first["reservation"].(map[string]any), second["reservation"].(map[string]any)
	if r1["id"] != r2["id"] || r2["quantity"] != float64(2) || r2["status"] != "CONFIRMED" {
		t.Fatalf("re-reservation changed identity: %v vs %v", r1, r2)
	}
	if second["created"] != false {
		t.Fatalf("second reservation reported created")
	}

	ticketJSON := second["ticket"].(map[string]any)
	ticketToken := ticketJSON["token"].(string)
	if data, _ := ticketJSON["qrDataUrl"].(string); data == "" || ticketJSON["ticketUrl"] == nil {
		t.Fatalf("ticket artifacts missing: %v", ticketJSON)
	}

	rec := s.do(http.MethodGet, "/api/qr?token="+url.QueryEscape(ticketToken)+"&size=256", nil, "")
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Fatalf("qr: %d %s", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("qr body is not a PNG")
	}

	door := s.login("door@fest.test", "staff-password")
	view := expect(t, s.do(http.MethodGet, "/api/approver/scan?token="+url.QueryEscape(ticketToken), nil, door), http.StatusOK)
	if view["checkedIn"] != false || view["holder"].(map[string]any)["email"] != "ada@example.com" {
		t.Fatalf("scan view: %v", view)
	}

	view = expect(t, s.do(http.MethodPost, "/api/approver/check-in", map[string]string{"token": ticketToken}, door), http.StatusOK)
	if view["checkedIn"] != true {
		t.Fatalf("check-in view: %v", view)
	}

	again := expect(t, s.do(http.MethodPost, "/api/approver/check-in", map[string]string{"token": ticketToken}, door), http.StatusConflict)
	if again["error"] != "already_checked_in" || again["ticket"] == nil {
		t.Fatalf("second check-in: %v", again)
	}

	mine := expect(t, s.do(http.MethodGet, "/api/reservations", nil, token), http.StatusOK)
	if items := mine["items"].([]any); len(items) != 1 {
		t.Fatalf("own reservations: %v", mine)
	}
}

func TestTokenFailuresOverHTTP(t *testing.T) {
	s := newServer(t)
	s.seedEvent("open-night")
	s.staff("holder@fest.test", "+15550002", model.RoleUser)
	s.staff("door@fest.test", "+15550009", model.RoleApprover)

	holder := s.login("holder@fest.test", "staff-password")
	res := expect(t, s.do(http.MethodPost, "/api/reservations", map[string]any{"slug": "open-night", "quantity": 1}, holder), http.StatusCreated)
	tok := res["ticket"].(map[string]any)["token"].(string)
	tampered := tok[:len(tok)-2] + "AA"
	if tampered == tok {
		tampered = tok[:len(tok)-2] + "BB"
	}

	body := expect(t, s.do(http.MethodGet, "/api/qr?token="+url.QueryEscape(tampered), nil, ""), http.StatusBadRequest)
	if body["error"] != "invalid_signature" {
		t.Fatalf("tampered qr: %v", body)
	}
	body = expect(t, s.do(http.MethodGet, "/api/qr?token=not-a-token", nil, ""), http.StatusBadRequest)
	if body["error"] != "invalid_token" {
		t.Fatalf("malformed qr: %v", body)
	}

	// Holders cannot scan.
	expect(t, s.do(http.MethodGet, "/api/approver/scan?token="+url.QueryEscape(tok), nil, holder), http.StatusForbidden)

	door := s.login("door@fest.test", "staff-password")
	body = expect(t, s.do(http.MethodPost, "/api/approver/check-in", map[string]string{"token": tampered}, door), http.StatusBadRequest)
	if body["error"] != "invalid_signature" {
		t.Fatalf("tampered check-in: %v", body)
	}
}

func TestReservationValidationOverHTTP(t *testing.T) {
	s := newServer(t)
	s.seedEvent("open-night")
	s.staff("holder@fest.test", "+15550002", model.RoleUser)
	holder := s.login("holder@fest.test", "staff-password")

	expect(t, s.do(http.MethodPost, "/api/reservations", map[string]any{"slug": "open-night", "quantity": 1}, ""), http.StatusUnauthorized)

	cases := []struct {
		body   map[string]any
		code   int
		reason string
	}{
		{map[string]any{"slug": "open-night", "quantity": 0}, http.StatusBadRequest, "invalid_quantity"},
		{map[string]any{"slug": "open-night", "quantity": 11}, http.StatusBadRequest, "invalid_quantity"},
		{map[string]any{"slug": "no-such-event", "quantity": 1}, http.StatusNotFound, "event_not_found"},
	}
	for _, tc := range cases {
		body := expect(t, s.do(http.MethodPost, "/api/reservations", tc.body, holder), tc.code)
		if body["error"] != tc.reason {
			t.Errorf("%v: got %v want %s", tc.body, body["error"], tc.reason)
		}
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	s.staff("admin@fest.test", "+15550000", model.RoleAdmin)
	s.staff("door@fest.test", "+15550009", model.RoleApprover)
	admin := s.login("admin@fest.test", "staff-password")
	door := s.login("door@fest.test", "staff-password")

	expect(t, s.do(http.MethodGet, "/api/admin/users", nil, door), http.StatusForbidden)

	venue := expect(t, s.do(http.MethodPost, "/api/admin/venues", map[string]any{"name": "Main Stage", "label": "Main"}, admin), http.StatusCreated)
	venueID := venue["id"].(float64)
	ev := expect(t, s.do(http.MethodPost, "/api/admin/events", map[string]any{
		"slug": "closing-party", "title": "Closing Party", "venueId": venueID,
	}, admin), http.StatusCreated)
	if ev["venueLabel"] != "Main" {
		t.Fatalf("venue label not cached: %v", ev)
	}

	body := expect(t, s.do(http.MethodDelete, "/api/admin/venues/"+jsonID(venueID), nil, admin), http.StatusConflict)
	if body["error"] != "venue_in_use" {
		t.Fatalf("venue delete: %v", body)
	}

	body = expect(t, s.do(http.MethodGet, "/api/admin/audit-logs?entity_type=Venue", nil, admin), http.StatusOK)
	if body["total"] != float64(1) {
		t.Fatalf("audit logs: %v", body)
	}

	stats := expect(t, s.do(http.MethodGet, "/api/admin/stats", nil, admin), http.StatusOK)
	if stats["events"] != float64(1) || stats["venues"] != float64(1) {
		t.Fatalf("stats: %v", stats)
	}

	expect(t, s.do(http.MethodGet, "/api/admin/users/abc", nil, admin), http.StatusBadRequest)

	public := expect(t, s.do(http.MethodGet, "/api/events/closing-party", nil, ""), http.StatusOK)
	if public["venue"].(map[string]any)["name"] != "Main Stage" {
		t.Fatalf("public event: %v", public)
	}
}

func TestPagesAndProbes(t *testing.T) {
	s := newServer(t)
	if rec := s.do(http.MethodGet, "/healthz", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/readyz", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}
	rec := s.do(http.MethodGet, "/admin/users?tab=2", nil, "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login?callbackUrl=%2Fadmin%2Fusers%3Ftab%3D2" {
		t.Fatalf("page guard: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	for _, path := range []string{"/api/nope", "/api/reservations/7/extra", "/api/tickets"} {
		body := expect(t, s.do(http.MethodGet, path, nil, ""), http.StatusNotFound)
		if body["error"] != "not_found" {
			t.Fatalf("%s: 404 body: %v", path, body)
		}
	}
	if rec := s.do(http.MethodGet, "/api/me", nil, ""); rec.Code != http.StatusUnauthorized || rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("me: %d", rec.Code)
	}
}

func jsonID(f float64) string {
	b, _ := json.Marshal(uint64(f))
	return string(b)
}
