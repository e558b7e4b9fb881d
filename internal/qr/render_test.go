package qr

import (
	"bytes"
	"errors"
	"image/png"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

type countingVerifier struct {
	codec *ticket.Codec
	calls int
}

func (v *countingVerifier) Verify(token string) (ticket.Payload, error) {
	v.calls++
	return v.codec.Verify(token)
}

func newRenderer(t *testing.T) (*Renderer, *ticket.Codec) {
	t.Helper()
	codec, err := ticket.NewCodec("qr-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return NewRenderer("https://fest.example.org/", codec), codec
}

func signed(t *testing.T, c *ticket.Codec, exp time.Time) string {
	t.Helper()
	tok, err := c.Sign(ticket.Payload{ReservationID: 3, TicketCode: "00112233445566778899", Exp: exp.Unix()})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return tok
}

func TestClampSize(t *testing.T) {
	cases := map[int]int{-5: 320, 0: 320, 1: 120, 119: 120, 120: 120, 500: 500, 1024: 1024, 5000: 1024}
	for in, want := range cases {
		if got := ClampSize(in); got != want {
			t.Fatalf("ClampSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestURLs(t *testing.T) {
	r, c := newRenderer(t)
	tok := signed(t, c, time.Now().Add(time.Hour))

	link := r.DeepLink(tok)
	if !strings.HasPrefix(link, "https://fest.example.org/approver/scan?token=") {
		t.Fatalf("deep link = %q", link)
	}
	u, err := url.Parse(link)
	if err != nil || u.Query().Get("token") != tok {
		t.Fatalf("deep link does not carry token: %q (%v)", link, err)
	}

	img, err := url.Parse(r.ImageURL(tok, 9999))
	if err != nil {
		t.Fatalf("parse image url: %v", err)
	}
	if img.Path != "/api/qr" || img.Query().Get("token") != tok || img.Query().Get("size") != "1024" {
		t.Fatalf("image url = %s", img)
	}
}

func TestPNGIsDecodableAndClamped(t *testing.T) {
	r, c := newRenderer(t)
	tok := signed(t, c, time.Now().Add(time.Hour))

	buf, err := r.PNG(tok, 50)
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if w := img.Bounds().Dx(); w != MinSize {
		t.Fatalf("width = %d, want %d", w, MinSize)
	}
}

func TestRejectsBadTokenBeforeRendering(t *testing.T) {
	codec, _ := ticket.NewCodec("qr-secret")
	v := &countingVerifier{codec: codec}
	r := NewRenderer("http://localhost:8080", v)

	if _, err := r.PNG("not-a-token", 320); !errors.Is(err, ticket.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	expired := signed(t, codec, time.Now().Add(-time.Hour))
	if _, err := r.DataURL(expired, 320); !errors.Is(err, ticket.ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if v.calls != 2 {
		t.Fatalf("verifier calls = %d, want 2", v.calls)
	}
}

func TestArtifacts(t *testing.T) {
	r, c := newRenderer(t)
	tok := signed(t, c, time.Now().Add(time.Hour))
	a, err := r.Artifacts(tok, 0)
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if !strings.HasPrefix(a.DataURL, "data:image/png;base64,") {
		t.Fatalf("data url prefix: %.40s", a.DataURL)
	}
	if !strings.Contains(a.ImageURL, "size=320") {
		t.Fatalf("image url = %q", a.ImageURL)
	}
	if a.DeepLink != r.DeepLink(tok) {
		t.Fatalf("deep link mismatch")
	}
}
