package handler

import (
	"time"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

// Response shapes.  Models never leave the package directly; users
// carry a password hash and the rest have no JSON tags.

type userResp struct {
	ID              uint64     `json:"id"`
	Name            *string    `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Role            model.Role `json:"role"`
	EmailVerified   bool       `json:"emailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toUser(u model.User) userResp {
	return userResp{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		EmailVerified:   u.Verified(),
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
	}
}

type venueResp struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
	Country  *string `json:"country"`
	MapURL   *string `json:"mapUrl"`
	EmbedURL *string `json:"embedUrl"`
}

func toVenue(v model.Venue) venueResp {
	return venueResp{
		ID:       v.ID,
		Name:     v.Name,
		Label:    v.Label,
		Address:  v.Address,
		City:     v.City,
		Country:  v.Country,
		MapURL:   v.MapURL,
		EmbedURL: v.EmbedURL,
	}
}

type eventResp struct {
	ID                   uint64     `json:"id"`
	Slug                 string     `json:"slug"`
	Title                string     `json:"title"`
	Description          *string    `json:"description"`
	Track                *string    `json:"track"`
	Day                  *string    `json:"day"`
	DayLabel             *string    `json:"dayLabel"`
	TimeLabel            *string    `json:"timeLabel"`
	IsFree               bool       `json:"isFree"`
	RequiresRegistration bool       `json:"requiresRegistration"`
	StartsAt             *time.Time `json:"startsAt"`
	EndsAt               *time.Time `json:"endsAt"`
	VenueID              *uint64    `json:"venueId"`
	VenueLabel           *string    `json:"venueLabel"`
}

func toEvent(e model.Event) eventResp {
	return eventResp{
		ID:                   e.ID,
		Slug:                 e.Slug,
		Title:                e.Title,
		Description:          e.Description,
		Track:                e.Track,
		Day:                  e.Day,
		DayLabel:             e.DayLabel,
		TimeLabel:            e.TimeLabel,
		IsFree:               e.IsFree,
		RequiresRegistration: e.RequiresRegistration,
		StartsAt:             e.StartsAt,
		EndsAt:               e.EndsAt,
		VenueID:              e.VenueID,
		VenueLabel:           e.VenueLabel,
	}
}

type eventDetailResp struct {
	eventResp
	Venue *venueResp `json:"venue"`
}

type reservationResp struct {
	ID            uint64                  `json:"id"`
	UserID        uint64                  `json:"userId"`
	EventID       uint64                  `json:"eventId"`
	Status        model.ReservationStatus `json:"status"`
	Quantity      int                     `json:"quantity"`
	ApprovedByID  *uint64                 `json:"approvedById,omitempty"`
	CancelledByID *uint64                 `json:"cancelledById,omitempty"`
	CancelledAt   *time.Time              `json:"cancelledAt,omitempty"`
	CancelReason  *string                 `json:"cancelReason,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// toReservation omits the ticket code; holders only ever see it
// inside a signed token.
func toReservation(r model.Reservation) reservationResp {
	return reservationResp{
		ID:            r.ID,
		UserID:        r.UserID,
		EventID:       r.EventID,
		Status:        r.Status,
		Quantity:      r.Quantity,
		ApprovedByID:  r.ApprovedByID,
		CancelledByID: r.CancelledByID,
		CancelledAt:   r.CancelledAt,
		CancelReason:  r.CancelReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type ticketResp struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Expired    bool      `json:"expired"`
	TicketURL  string    `json:"ticketUrl"`
	QRImageURL string    `json:"qrImageUrl"`
	QRDataURL  string    `json:"qrDataUrl,omitempty"`
}

func toTicket(t service.Ticket) ticketResp {
	return ticketResp{
		Token:      t.Token,
		ExpiresAt:  t.ExpiresAt,
		Expired:    t.Expired,
		TicketURL:  t.DeepLink,
		QRImageURL: t.ImageURL,
		QRDataURL:  t.DataURL,
	}
}

type checkInResp struct {
	ScannedByID *uint64   `json:"scannedById"`
	ScannedAt   time.Time `json:"scannedAt"`
}

func toCheckIn(ci *model.ReservationCheckIn) *checkInResp {
	if ci == nil {
		return nil
	}
	return &checkInResp{ScannedByID: ci.ScannedByID, ScannedAt: ci.ScannedAt}
}

type holderResp struct {
	ID    uint64  `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
	Phone string  `json:"phone"`
}

type ticketViewResp struct {
	Reservation reservationResp `json:"reservation"`
	Event       eventResp       `json:"event"`
	Holder      holderResp      `json:"holder"`
	CheckedIn   bool            `json:"checkedIn"`
	CheckIn     *checkInResp    `json:"checkIn"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

func toTicketView(v service.TicketView) ticketViewResp {
	return ticketViewResp{
		Reservation: toReservation(v.Reservation),
		Event:       toEvent(v.Event),
		Holder:      holderResp{ID: v.Holder.ID, Name: v.Holder.Name, Email: v.Holder.Email, Phone: v.Holder.Phone},
		CheckedIn:   v.CheckedIn(),
		CheckIn:     toCheckIn(v.CheckIn),
		ExpiresAt:   v.ExpiresAt,
	}
}

type reservationRowResp struct {
	reservationResp
	UserEmail   string     `json:"userEmail"`
	UserName    *string    `json:"userName"`
	EventSlug   string     `json:"eventSlug"`
	EventTitle  string     `json:"eventTitle"`
	CheckedInAt *time.Time `json:"checkedInAt"`
}

func toReservationRow(r model.ReservationRow) reservationRowResp {
	return reservationRowResp{
		reservationResp: toReservation(r.Reservation),
		UserEmail:       r.UserEmail,
		UserName:        r.UserName,
		EventSlug:       r.EventSlug,
		EventTitle:      r.EventTitle,
		CheckedInAt:     r.CheckedInAt,
	}
}

type reservationDetailResp struct {
	Reservation reservationResp `json:"reservation"`
	Event       eventResp       `json:"event"`
	Holder      userResp        `json:"holder"`
	CheckIn     *checkInResp    `json:"checkIn"`
	Ticket      ticketResp      `json:"ticket"`
}

func toReservationDetail(d service.ReservationDetail) reservationDetailResp {
	return reservationDetailResp{
		Reservation: toReservation(d.Reservation),
		Event:       toEvent(d.Event),
		Holder:      toUser(d.Holder),
		CheckIn:     toCheckIn(d.CheckIn),
		Ticket:      toTicket(d.Ticket),
	}
}

type auditResp struct {
	ID         uint64     `json:"id"`
	ActorID    *uint64    `json:"actorId"`
	Action     string     `json:"action"`
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Meta       model.Meta `json:"meta"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toAudit(a model.AuditLog) auditResp {
	return auditResp{
		ID:         a.ID,
		ActorID:    a.ActorID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Meta:       a.Meta,
		CreatedAt:  a.CreatedAt,
	}
}
