// Package seed loads a festival program from YAML and upserts it:
// venues by name, events by slug, and an optional bootstrap admin by
// email.  Running it twice leaves the store unchanged.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/service"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Program is the YAML document.
//
//	admin:
//	  email: admin@example.com
//	  phone: "+15550000"
//	  password: change-me-please
//	venues:
//	  - name: Main Stage
//	    label: Main
//	events:
//	  - slug: open-night
//	    title: Open Night
//	    venue: Main Stage
//	    starts_at: 2026-07-01T18:00:00Z
//	    ends_at: 2026-07-01T23:00:00Z
type Program struct {
	Admin  *Admin  `yaml:"admin"`
	Venues []Venue `yaml:"venues"`
	Events []Event `yaml:"events"`
}

type Admin struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Password string `yaml:"password"`
}

type Venue struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Address  string `yaml:"address"`
	City     string `yaml:"city"`
	Country  string `yaml:"country"`
	MapURL   string `yaml:"map_url"`
	EmbedURL string `yaml:"embed_url"`
}

type Event struct {
	Slug                 string     `yaml:"slug"`
	Title                string     `yaml:"title"`
	Description          string     `yaml:"description"`
	Track                string     `yaml:"track"`
	Day                  string     `yaml:"day"`
	DayLabel             string     `yaml:"day_label"`
	TimeLabel            string     `yaml:"time_label"`
	IsFree               bool       `yaml:"is_free"`
	RequiresRegistration *bool      `yaml:"requires_registration"`
	StartsAt             *time.Time `yaml:"starts_at"`
	EndsAt               *time.Time `yaml:"ends_at"`
	// Venue is the name of a venue in this file or already stored.
	Venue      string `yaml:"venue"`
	VenueLabel string `yaml:"venue_label"`
}

// Parse decodes and validates a program.  Unknown keys are rejected.
func Parse(r io.Reader) (Program, error) {
	var p Program
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Program{}, fmt.Errorf("decode program: %w", err)
	}
	return p, p.validate()
}

func (p Program) validate() error {
	var errs []error
	names := map[string]bool{}
	for i, v := range p.Venues {
		name := strings.TrimSpace(v.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("venues[%d]: name is required", i))
		case names[name]:
			errs = append(errs, fmt.Errorf("venues[%d]: duplicate name %q", i, name))
		}
		names[name] = true
	}
	slugs := map[string]bool{}
	for i, e := range p.Events {
		switch {
		case !slugPattern.MatchString(e.Slug):
			errs = append(errs, fmt.Errorf("events[%d]: invalid slug %q", i, e.Slug))
		case slugs[e.Slug]:
			errs = append(errs, fmt.Errorf("events[%d]: duplicate slug %q", i, e.Slug))
		}
		slugs[e.Slug] = true
		if strings.TrimSpace(e.Title) == "" {
			errs = append(errs, fmt.Errorf("events[%d]: title is required", i))
		}
		if e.StartsAt != nil && e.EndsAt != nil && e.EndsAt.Before(*e.StartsAt) {
			errs = append(errs, fmt.Errorf("events[%d]: ends_at before starts_at", i))
		}
	}
	if a := p.Admin; a != nil && (a.Email == "" || a.Phone == "" || len(a.Password) < utils.MinPasswordLen) {
		errs = append(errs, errors.New("admin: email, phone and a password of at least 8 characters are required"))
	}
	return errors.Join(errs...)
}

// Store is what Apply writes to.
type Store interface {
	service.UserStore
	service.VenueStore
	service.EventStore
}

// Result counts what Apply changed.
type Result struct {
	VenuesCreated, VenuesUpdated int
	EventsCreated, EventsUpdated int
	AdminCreated                 bool
}

// Apply upserts p into st.
func Apply(ctx context.Context, st Store, p Program, bcryptCost int, log *slog.Logger) (Result, error) {
	var res Result
	if p.Admin != nil {
		created, err := upsertAdmin(ctx, st, *p.Admin, bcryptCost)
		if err != nil {
			return res, err
		}
		res.AdminCreated = created
	}

	venues := map[string]model.Venue{}
	for _, in := range p.Venues {
		v, created, err := upsertVenue(ctx, st, in)
		if err != nil {
			return res, fmt.Errorf("venue %q: %w", in.Name, err)
		}
		if created {
			res.VenuesCreated++
		} else {
			res.VenuesUpdated++
		}
		venues[v.Name] = v
	}

	for _, in := range p.Events {
		created, err := upsertEvent(ctx, st, in, venues)
		if err != nil {
			return res, fmt.Errorf("event %q: %w", in.Slug, err)
		}
		if created {
			res.EventsCreated++
		} else {
			res.EventsUpdated++
		}
	}
	log.InfoContext(ctx, "program applied",
		"venues_created", res.VenuesCreated, "venues_updated", res.VenuesUpdated,
		"events_created", res.EventsCreated, "events_updated", res.EventsUpdated,
		"admin_created", res.AdminCreated)
	return res, nil
}

// upsertAdmin creates the admin when the email is unknown.  An
// existing account is left alone so a rerun never resets a password.
func upsertAdmin(ctx context.Context, st Store, a Admin, cost int) (bool, error) {
	email := service.NormalizeEmail(a.Email)
	if _, err := st.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	hash, err := utils.HashPassword(a.Password, cost)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	u := model.User{
		Name:            optional(a.Name),
		Email:           email,
		Phone:           service.NormalizePhone(a.Phone),
		PasswordHash:    hash,
		Role:            model.RoleAdmin,
		EmailVerifiedAt: &now,
	}
	if err := st.CreateUser(ctx, &u); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func upsertVenue(ctx context.Context, st Store, in Venue) (model.Venue, bool, error) {
	name := strings.TrimSpace(in.Name)
	v, err := st.GetVenueByName(ctx, name)
	created := errors.Is(err, repository.ErrNotFound)
	if err != nil && !created {
		return model.Venue{}, false, err
	}
	v.Name = name
	v.Label = strings.TrimSpace(in.Label)
	if v.Label == "" {
		v.Label = name
	}
	v.Address = optional(in.Address)
	v.City = optional(in.City)
	v.Country = optional(in.Country)
	v.MapURL = optional(in.MapURL)
	v.EmbedURL = optional(in.EmbedURL)
	if created {
		err = st.CreateVenue(ctx, &v)
	} else {
		err = st.UpdateVenue(ctx, &v)
	}
	return v, created, err
}

func upsertEvent(ctx context.Context, st Store, in Event, venues map[string]model.Venue) (bool, error) {
	e, err := st.GetEventBySlug(ctx, in.Slug)
	created := errors.Is(err, repository.ErrNotFound)
	if err != nil && !created {
		return false, err
	}
	e.Slug = in.Slug
	e.Title = strings.TrimSpace(in.Title)
	e.Description = optional(in.Description)
	e.Track = optional(in.Track)
	e.Day = optional(in.Day)
	e.DayLabel = optional(in.DayLabel)
	e.TimeLabel = optional(in.TimeLabel)
	e.IsFree = in.IsFree
	e.RequiresRegistration = in.RequiresRegistration == nil || *in.RequiresRegistration
	e.StartsAt = utc(in.StartsAt)
	e.EndsAt = utc(in.EndsAt)
	e.VenueID, e.VenueLabel = nil, optional(in.VenueLabel)
	if name := strings.TrimSpace(in.Venue); name != "" {
		v, ok := venues[name]
		if !ok {
			if v, err = st.GetVenueByName(ctx, name); err != nil {
				return false, fmt.Errorf("unknown venue %q: %w", name, err)
			}
		}
		id, label := v.ID, v.Label
		e.VenueID, e.VenueLabel = &id, &label
	}
	if created {
		return true, st.CreateEvent(ctx, &e)
	}
	return false, st.UpdateEvent(ctx, &e)
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
