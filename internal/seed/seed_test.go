package seed

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/memstore"
	"github.com/iliyamo/festival-ticketing/internal/model"
)

const program = `
admin:
  email: Admin@Fest.test
  phone: "+15550000"
  password: change-me-please
venues:
  - name: Main Stage
    label: Main
  - name: Tent
events:
  - slug: open-night
    title: Open Night
    venue: Main Stage
    starts_at: 2026-07-01T18:00:00Z
    ends_at: 2026-07-01T23:00:00Z
  - slug: workshop
    title: Workshop
    venue: Tent
    is_free: true
    requires_registration: false
`

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p, err := Parse(strings.NewReader(program))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st := memstore.New()

	res, err := Apply(ctx, st, p, 4, logging.Discard())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.VenuesCreated != 2 || res.EventsCreated != 2 || !res.AdminCreated {
		t.Fatalf("first run: %+v", res)
	}

	res, err = Apply(ctx, st, p, 4, logging.Discard())
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if res.VenuesCreated != 0 || res.VenuesUpdated != 2 || res.EventsCreated != 0 || res.EventsUpdated != 2 || res.AdminCreated {
		t.Fatalf("second run: %+v", res)
	}

	venues, total, err := st.ListVenues(ctx, model.ListFilter{}.Normalize())
	if err != nil || total != 2 || len(venues) != 2 {
		t.Fatalf("venues: %d %v", total, err)
	}
	ev, err := st.GetEventBySlug(ctx, "open-night")
	if err != nil {
		t.Fatal(err)
	}
	if ev.VenueLabel == nil || *ev.VenueLabel != "Main" || !ev.RequiresRegistration {
		t.Fatalf("open-night = %+v", ev)
	}
	ws, err := st.GetEventBySlug(ctx, "workshop")
	if err != nil {
		t.Fatal(err)
	}
	if ws.RequiresRegistration || !ws.IsFree {
		t.Fatalf("workshop flags = %+v", ws)
	}
	admin, err := st.GetUserByEmail(ctx, "admin@fest.test")
	if err != nil || admin.Role != model.RoleAdmin || !admin.Verified() {
		t.Fatalf("admin = %+v, %v", admin, err)
	}
}

func TestParseRejectsBadPrograms(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "venues:\n  - name: A\n    colour: red\n",
		"bad slug":      "events:\n  - slug: Open Night\n    title: x\n",
		"duplicate":     "events:\n  - slug: a\n    title: x\n  - slug: a\n    title: y\n",
		"no title":      "events:\n  - slug: a\n",
		"reversed":      "events:\n  - slug: a\n    title: x\n    starts_at: 2026-07-02T00:00:00Z\n    ends_at: 2026-07-01T00:00:00Z\n",
		"weak admin":    "admin:\n  email: a@b.test\n  phone: '+1555'\n  password: short\n",
		"nameless hall": "venues:\n  - label: x\n",
	}
	for name, doc := range cases {
		if _, err := Parse(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Parse(strings.NewReader("")); err != nil {
		t.Fatalf("empty program: %v", err)
	}
}

func TestApplyUnknownVenue(t *testing.T) {
	p := Program{Events: []Event{{Slug: "a", Title: "A", Venue: "Nowhere"}}}
	if _, err := Apply(context.Background(), memstore.New(), p, 4, logging.Discard()); err == nil {
		t.Fatal("expected unknown venue error")
	}
}

func TestExampleProgramLoads(t *testing.T) {
	f, err := os.Open("../../program.example.yaml")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	p, err := Parse(f)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res, err := Apply(context.Background(), memstore.New(), p, 4, logging.Discard())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.VenuesCreated != 2 || res.EventsCreated != 3 || !res.AdminCreated {
		t.Fatalf("result = %+v", res)
	}
}
