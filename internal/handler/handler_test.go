package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(logging.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		reason string
	}{
		{&service.Error{Kind: service.KindConflict, Reason: "already_checked_in", Message: "x"}, http.StatusConflict, "already_checked_in"},
		{&service.Error{Kind: service.KindInvalidState, Reason: "reservation_not_confirmed"}, http.StatusBadRequest, "reservation_not_confirmed"},
		{&service.Error{Kind: service.KindForbidden, Reason: "forbidden"}, http.StatusForbidden, "forbidden"},
		{&service.Error{Kind: service.KindExpired, Reason: "token_expired"}, http.StatusBadRequest, "token_expired"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "server_error"},
	}
	for _, tc := range cases {
		c, rec := newContext("/")
		if err := writeError(c, logging.Discard(), tc.err); err != nil {
			t.Fatal(err)
		}
		var body errorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if rec.Code != tc.status || body.Error != tc.reason {
			t.Errorf("%v: got %d %q want %d %q", tc.err, rec.Code, body.Error, tc.status, tc.reason)
		}
	}
}

func TestWriteErrorLogsServerErrorsWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	c, rec := newContext("/")

	_ = writeError(c, log, errors.New("disk on fire"))
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Fatal("internal error text leaked to the client")
	}
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) || !strings.Contains(buf.String(), "disk on fire") {
		t.Fatalf("log line = %s", buf.String())
	}
}

func TestListFilterAndPathID(t *testing.T) {
	c, _ := newContext("/?q=+stage+&limit=500&offset=-3")
	f := listFilter(c)
	if f.Query != "stage" || f.Limit != 50 || f.Offset != 0 {
		t.Fatalf("filter = %+v", f)
	}

	c.SetParamNames("id")
	for raw, ok := range map[string]bool{"12": true, "0": false, "-1": false, "abc": false} {
		c.SetParamValues(raw)
		if _, got := pathID(c); got != ok {
			t.Errorf("pathID(%q) ok = %v", raw, got)
		}
	}
}

func TestReservationResponseHidesTicketCode(t *testing.T) {
	b, err := json.Marshal(toReservation(model.Reservation{ID: 1, TicketCode: "secret-code", Status: model.StatusConfirmed, Quantity: 2}))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "secret-code") {
		t.Fatalf("ticket code serialized: %s", b)
	}
}

func TestUserResponseHidesPasswordHash(t *testing.T) {
	b, err := json.Marshal(toUser(model.User{ID: 1, Email: "a@b.test", PasswordHash: "$2a$hash", Role: model.RoleUser}))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "$2a$hash") || !strings.Contains(string(b), `"emailVerified":false`) {
		t.Fatalf("user json = %s", b)
	}
}

func TestNewPageNeverNull(t *testing.T) {
	b, _ := json.Marshal(newPage[userResp](nil, 0, model.ListFilter{Limit: 50}))
	if !strings.Contains(string(b), `"items":[]`) {
		t.Fatalf("page json = %s", b)
	}
}
