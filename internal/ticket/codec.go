// Package ticket signs and verifies the self-contained ticket tokens
// handed out with every reservation.  A token is
//
//	base64url(JSON payload) "." base64url(HMAC-SHA256(JSON payload))
//
// with unpadded encoding on both segments.  Nothing about a token is
// stored server side; only the reservation's ticket code is durable.
package ticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMissingSecret is returned by NewCodec when no signing secret
	// is configured.
	ErrMissingSecret = errors.New("ticket: signing secret is not configured")
	// ErrInvalidToken reports a structurally malformed token.
	ErrInvalidToken = errors.New("ticket: malformed token")
	// ErrInvalidSignature reports a token whose MAC does not match.
	ErrInvalidSignature = errors.New("ticket: invalid signature")
	// ErrExpired reports a correctly signed token past its exp.
	ErrExpired = errors.New("ticket: token expired")
)

const separator = "."

var enc = base64.RawURLEncoding.Strict()

// Payload is the signed content of a ticket token.  Field order is
// fixed by the struct so the serialized form is deterministic.
type Payload struct {
	ReservationID uint64 `json:"reservationId"`
	TicketCode    string `json:"ticketCode"`
	Exp           int64  `json:"exp"` // unix seconds
}

// ExpiresAt returns Exp as a UTC time.
func (p Payload) ExpiresAt() time.Time { return time.Unix(p.Exp, 0).UTC() }

// Codec signs and verifies tokens with a single server-held secret.
// It is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a Codec bound to secret.  An empty secret is a
// configuration error.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	c := &Codec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign serializes p and appends its MAC.
func (c *Codec) Sign(p Payload) (string, error) {
	if p.ReservationID == 0 || p.TicketCode == "" {
		return "", ErrInvalidToken
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return enc.EncodeToString(body) + separator + c.mac(body), nil
}

// Verify authenticates token and returns its payload.  Structure is
// checked first, then the MAC, then the payload content and expiry.
//
// The token is split at its last separator.  Any other "." can only sit
// in the body, where it is not base64url, so a damaged body always
// reports ErrInvalidSignature.
func (c *Codec) Verify(token string) (Payload, error) {
	token = strings.TrimSpace(token)
	i := strings.LastIndex(token, separator)
	if i <= 0 || i == len(token)-1 {
		return Payload{}, ErrInvalidToken
	}
	rawBody, sig := token[:i], token[i+1:]
	body, err := enc.DecodeString(rawBody)
	if err != nil || enc.EncodeToString(body) != rawBody {
		// Only the canonical encoding of a body can authenticate; the
		// decoder alone would skip embedded line breaks.
		return Payload{}, ErrInvalidSignature
	}
	if !hmac.Equal([]byte(c.mac(body)), []byte(sig)) {
		return Payload{}, ErrInvalidSignature
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, ErrInvalidToken
	}
	if p.ReservationID == 0 || p.TicketCode == "" || p.Exp == 0 {
		return Payload{}, ErrInvalidToken
	}
	if p.Exp < c.now().Unix() {
		return p, ErrExpired
	}
	return p, nil
}

func (c *Codec) mac(body []byte) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write(body)
	return enc.EncodeToString(h.Sum(nil))
}

// IsTokenError reports whether err is one of the verification failures
// of this package.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpired)
}
