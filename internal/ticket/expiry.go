package ticket

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const (
	// GracePeriod is how long a ticket stays valid after its event ends.
	GracePeriod = 30 * 24 * time.Hour
	// OpenEndedValidity applies to events without an end time.
	OpenEndedValidity = 365 * 24 * time.Hour

	codeBytes = 10
)

// ExpiryFor computes a token expiry.  Dated events expire GracePeriod
// after they end; events without an end time get OpenEndedValidity
// from issuedAt.
func ExpiryFor(endsAt *time.Time, issuedAt time.Time) time.Time {
	if endsAt != nil && !endsAt.IsZero() {
		return endsAt.UTC().Add(GracePeriod)
	}
	return issuedAt.UTC().Add(OpenEndedValidity)
}

// NewCode returns a fresh ticket code: 20 hex characters drawn from
// crypto/rand.
func NewCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
