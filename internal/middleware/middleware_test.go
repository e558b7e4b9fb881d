package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/config"
	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, id, role, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	return at.Token
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"id": UserID(c), "role": Role(c)})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	if rec := serve(e, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 7, model.RoleAdmin))
	rec := serve(e, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"id\":7,\"role\":\"ADMIN\"}\n" {
		t.Fatalf("bearer: %d %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, 9, model.RoleUser)})
	if rec := serve(e, req); rec.Code != http.StatusOK {
		t.Fatalf("cookie: %d", rec.Code)
	}
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami, OptionalJWT(secret))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := serve(e, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"id\":0,\"role\":\"\"}\n" {
		t.Fatalf("anonymous: %d %s", rec.Code, rec.Body)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/scan", whoami, JWTAuth(secret), RequireRole(model.RoleAdmin, model.RoleApprover))

	cases := map[model.Role]int{
		model.RoleUser:     http.StatusForbidden,
		model.RoleApprover: http.StatusOK,
		model.RoleAdmin:    http.StatusOK,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/scan", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, 1, role))
		if rec := serve(e, req); rec.Code != want {
			t.Errorf("%s: got %d want %d", role, rec.Code, want)
		}
	}
}

func TestPageGuard(t *testing.T) {
	e := echo.New()
	e.Use(PageGuard(secret))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "page") }
	for _, p := range []string{"/", "/admin", "/admin/users", "/approver", "/account", "/tickets/3", "/administrator", "/api/me"} {
		e.GET(p, ok)
	}

	cases := []struct {
		path     string
		role     model.Role
		wantCode int
		wantLoc  string
	}{
		{"/", "", http.StatusOK, ""},
		{"/administrator", "", http.StatusOK, ""},
		{"/api/me", "", http.StatusOK, ""},
		{"/admin/users", "", http.StatusSeeOther, "/login?callbackUrl=%2Fadmin%2Fusers"},
		{"/tickets/3", "", http.StatusSeeOther, "/login?callbackUrl=%2Ftickets%2F3"},
		{"/admin", model.RoleApprover, http.StatusSeeOther, "/"},
		{"/admin", model.RoleAdmin, http.StatusOK, ""},
		{"/approver", model.RoleUser, http.StatusSeeOther, "/"},
		{"/approver", model.RoleApprover, http.StatusOK, ""},
		{"/approver", model.RoleAdmin, http.StatusOK, ""},
		{"/account", model.RoleUser, http.StatusOK, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.role != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, 1, tc.role)})
		}
		rec := serve(e, req)
		if rec.Code != tc.wantCode {
			t.Errorf("%s as %q: code %d want %d", tc.path, tc.role, rec.Code, tc.wantCode)
			continue
		}
		if loc := rec.Header().Get("Location"); loc != tc.wantLoc {
			t.Errorf("%s as %q: location %q want %q", tc.path, tc.role, loc, tc.wantLoc)
		}
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, logging.RequestID(c.Request().Context()))
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	got := rec.Header().Get(HeaderRequestID)
	if got == "" || rec.Body.String() != got {
		t.Fatalf("generated id %q body %q", got, rec.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = serve(e, req)
	if rec.Body.String() != "abc-123" || rec.Header().Get(HeaderRequestID) != "abc-123" {
		t.Fatalf("propagated id: %q", rec.Body)
	}
}

func TestDisabledLimiterAndCachePassThrough(t *testing.T) {
	e := echo.New()
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil, logging.Discard())
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, logging.Discard()),
		rc.Middleware(),
	)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("code %d x-cache %q", rec.Code, rec.Header().Get("X-Cache"))
	}
	if err := rc.Purge(t.Context()); err != nil {
		t.Fatalf("Purge: %v", err)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl:auth", KeyStrategy: "ip_route"}
	if got, want := buildRateKey(cfg, c), "rl:auth:ip:10.0.0.1:route:POST /api/auth/login"; got != want {
		t.Fatalf("key = %q want %q", got, want)
	}
	setIdentity(c, 42, model.RoleUser)
	cfg.KeyStrategy = "user"
	if got := buildRateKey(cfg, c); got != "rl:auth:user:42" {
		t.Fatalf("user key = %q", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	for ms, want := range map[int64]int{0: 1, 1: 1, 1000: 1, 1001: 2, 2500: 3} {
		if got := retryAfterSeconds(ms); got != want {
			t.Errorf("retryAfterSeconds(%d) = %d want %d", ms, got, want)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || hdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Fatal("short payload accepted")
	}
}
