package utils

import (
	"strings"
	"testing"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("secret", 42, model.RoleApprover, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	cl, err := ParseAccessToken("secret", at.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if cl.UserID != 42 || cl.Role != model.RoleApprover {
		t.Fatalf("claims = %+v", cl)
	}
	if _, err := ParseAccessToken("other", at.Token); err != ErrInvalidSession {
		t.Fatalf("wrong secret err = %v", err)
	}
}

func TestAccessTokenExpired(t *testing.T) {
	at, err := NewAccessToken("secret", 1, model.RoleUser, -1)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseAccessToken("secret", at.Token); err != ErrInvalidSession {
		t.Fatalf("err = %v", err)
	}
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(1)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw len = %d", len(rt.Raw))
	}
	if h := HashRefreshRaw(rt.Raw); len(h) != 64 || h == rt.Raw {
		t.Fatalf("hash = %q", h)
	}
}

func TestVerificationCode(t *testing.T) {
	code, err := NewVerificationCode()
	if err != nil {
		t.Fatalf("NewVerificationCode: %v", err)
	}
	if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
		t.Fatalf("code = %q", code)
	}
	h := HashVerificationCode(code)
	if !VerificationCodeMatches(h, code) {
		t.Fatal("code does not match its own hash")
	}
	if VerificationCodeMatches(h, "abcdef") {
		t.Fatal("foreign code matched")
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(h, "correct horse") || VerifyPassword(h, "wrong") {
		t.Fatal("VerifyPassword mismatch")
	}
}
