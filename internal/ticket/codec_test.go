package ticket

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestCodec(t *testing.T, now time.Time) *Codec {
	t.Helper()
	c, err := NewCodec("test-secret", WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodecRequiresSecret(t *testing.T) {
	for _, s := range []string{"", "   "} {
		if _, err := NewCodec(s); !errors.Is(err, ErrMissingSecret) {
			t.Fatalf("NewCodec(%q) err = %v, want ErrMissingSecret", s, err)
		}
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	payloads := []Payload{
		{ReservationID: 1, TicketCode: "a1b2c3d4e5f6a7b8c9d0", Exp: now.Add(time.Hour).Unix()},
		{ReservationID: 987654321, TicketCode: "ffffffffffffffffffff", Exp: now.Add(400 * 24 * time.Hour).Unix()},
		{ReservationID: 42, TicketCode: "code with spaces/and+symbols", Exp: now.Unix()},
	}
	for _, p := range payloads {
		tok, err := c.Sign(p)
		if err != nil {
			t.Fatalf("Sign(%+v): %v", p, err)
		}
		if strings.Count(tok, ".") != 1 || strings.ContainsAny(tok, "=+/") {
			t.Fatalf("token %q is not two unpadded base64url segments", tok)
		}
		got, err := c.Verify(tok)
		if err != nil {
			t.Fatalf("Verify(%q): %v", tok, err)
		}
		if got != p {
			t.Fatalf("Verify returned %+v, want %+v", got, p)
		}
	}
}

func TestSignIsDeterministic(t *testing.T) {
	c := newTestCodec(t, time.Unix(1_700_000_000, 0))
	p := Payload{ReservationID: 7, TicketCode: "abc", Exp: 1_800_000_000}
	a, _ := c.Sign(p)
	b, _ := c.Sign(p)
	if a != b {
		t.Fatalf("tokens differ: %q vs %q", a, b)
	}
}

func TestSignRejectsIncompletePayload(t *testing.T) {
	c := newTestCodec(t, time.Now())
	if _, err := c.Sign(Payload{TicketCode: "abc", Exp: 1}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("missing reservation id: err = %v", err)
	}
	if _, err := c.Sign(Payload{ReservationID: 1, Exp: 1}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("missing ticket code: err = %v", err)
	}
}

func flipBit(t *testing.T, segment string, bit int) string {
	t.Helper()
	raw, err := enc.DecodeString(segment)
	if err != nil {
		t.Fatalf("decode segment: %v", err)
	}
	raw[bit/8] ^= 1 << (bit % 8)
	return enc.EncodeToString(raw)
}

func TestTamperDetection(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)
	tok, err := c.Sign(Payload{ReservationID: 55, TicketCode: "0123456789abcdef0123", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	parts := strings.Split(tok, ".")
	body, sig := parts[0], parts[1]

	bodyBits := len(mustDecode(t, body)) * 8
	for bit := 0; bit < bodyBits; bit++ {
		tampered := flipBit(t, body, bit) + "." + sig
		if _, err := c.Verify(tampered); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("body bit %d: err = %v, want ErrInvalidSignature", bit, err)
		}
	}
	sigBits := len(mustDecode(t, sig)) * 8
	for bit := 0; bit < sigBits; bit++ {
		tampered := body + "." + flipBit(t, sig, bit)
		if _, err := c.Verify(tampered); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("signature bit %d: err = %v, want ErrInvalidSignature", bit, err)
		}
	}
}

func TestTamperedTokenCharacters(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)
	tok, err := c.Sign(Payload{ReservationID: 7, TicketCode: "a1b2c3d4e5f6a7b8c9d0", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sep := strings.LastIndex(tok, ".")
	for pos := 0; pos < len(tok); pos++ {
		if pos == sep {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			b := []byte(tok)
			b[pos] ^= 1 << bit
			if _, err := c.Verify(string(b)); !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("char %d (%q) bit %d: err = %v, want ErrInvalidSignature", pos, tok[pos], bit, err)
			}
		}
	}
}

func TestVerifyRejectsExtraSeparators(t *testing.T) {
	now := time.Now()
	c := newTestCodec(t, now)
	tok, _ := c.Sign(Payload{ReservationID: 3, TicketCode: "x", Exp: now.Add(time.Minute).Unix()})
	body, sig, _ := strings.Cut(tok, ".")
	for _, bad := range []string{"a.b.c", body[:4] + "." + body[4:] + "." + sig, body + "\n." + sig, body[:4] + "\n" + body[4:] + "." + sig} {
		if _, err := c.Verify(bad); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("Verify(%q) err = %v, want ErrInvalidSignature", bad, err)
		}
	}
}

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := enc.DecodeString(s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	now := time.Now()
	a := newTestCodec(t, now)
	b, _ := NewCodec("another-secret", WithClock(fixedClock(now)))
	tok, _ := a.Sign(Payload{ReservationID: 1, TicketCode: "x", Exp: now.Add(time.Minute).Unix()})
	if _, err := b.Verify(tok); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	c := newTestCodec(t, time.Now())
	cases := []string{"", "abc", ".sig", "body.", "...", "  "}
	for _, tok := range cases {
		if _, err := c.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestVerifyAuthenticatedGarbagePayload(t *testing.T) {
	c := newTestCodec(t, time.Now())
	body := []byte(`{"hello":"world"}`)
	tok := enc.EncodeToString(body) + "." + c.mac(body)
	if _, err := c.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	body = []byte(`not json`)
	tok = enc.EncodeToString(body) + "." + c.mac(body)
	if _, err := c.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 8, 10, 18, 30, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	past, _ := c.Sign(Payload{ReservationID: 9, TicketCode: "code", Exp: now.Unix() - 1})
	if _, err := c.Verify(past); !errors.Is(err, ErrExpired) {
		t.Fatalf("exp=now-1: err = %v, want ErrExpired", err)
	}
	future, _ := c.Sign(Payload{ReservationID: 9, TicketCode: "code", Exp: now.Unix() + 1})
	if _, err := c.Verify(future); err != nil {
		t.Fatalf("exp=now+1: err = %v, want nil", err)
	}
}

func TestIsTokenError(t *testing.T) {
	for _, err := range []error{ErrInvalidToken, ErrInvalidSignature, ErrExpired} {
		if !IsTokenError(err) {
			t.Fatalf("IsTokenError(%v) = false", err)
		}
	}
	if IsTokenError(ErrMissingSecret) || IsTokenError(errors.New("other")) {
		t.Fatal("unexpected token error classification")
	}
}
