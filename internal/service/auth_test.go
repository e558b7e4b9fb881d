package service

import (
	"context"
	"testing"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

func register(t *testing.T, e *env, email, phone string) model.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{Name: "Ana", Phone: phone, Email: email, Password: "password123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestRegisterVerifyLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := register(t, e, " Ana@Example.com ", "+36 1 234 5678")
	if u.Email != "ana@example.com" || u.Phone != "+3612345678" || u.Role != model.RoleUser || u.Verified() {
		t.Fatalf("user = %+v", u)
	}

	_, err := e.auth.Login(ctx, "ana@example.com", "password123")
	wantKind(t, err, KindForbidden, "email_not_verified")

	_, err = e.auth.VerifyEmail(ctx, "ana@example.com", "000000x")
	wantKind(t, err, KindInvalidInput, "invalid_code")

	verified, err := e.auth.VerifyEmail(ctx, "ana@example.com", e.notifier.lastCode(t))
	if err != nil || !verified.Verified() {
		t.Fatalf("VerifyEmail: %+v (%v)", verified, err)
	}

	sess, err := e.auth.Login(ctx, "ANA@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := utils.ParseAccessToken("jwt-secret", sess.Access.Token)
	if err != nil || claims.UserID != u.ID || claims.Role != model.RoleUser {
		t.Fatalf("claims = %+v (%v)", claims, err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "ana@example.com", "+3612345678", model.RoleUser)

	_, err := e.auth.Login(ctx, "ana@example.com", "wrong-password")
	wantKind(t, err, KindUnauthorized, "invalid_credentials")
	_, err = e.auth.Login(ctx, "nobody@example.com", "password123")
	wantKind(t, err, KindUnauthorized, "invalid_credentials")
}

func TestRegisterConflictsAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "ana@example.com", "+3612345678")

	_, err := e.auth.Register(ctx, RegisterInput{Phone: "+3699999999", Email: "ana@example.com", Password: "password123"})
	wantKind(t, err, KindConflict, "email_taken")
	_, err = e.auth.Register(ctx, RegisterInput{Phone: "+3612345678", Email: "bob@example.com", Password: "password123"})
	wantKind(t, err, KindConflict, "phone_taken")

	_, err = e.auth.Register(ctx, RegisterInput{Phone: "+3611111111", Email: "not-an-email", Password: "password123"})
	wantKind(t, err, KindInvalidInput, "invalid_email")
	_, err = e.auth.Register(ctx, RegisterInput{Phone: "abc", Email: "c@example.com", Password: "password123"})
	wantKind(t, err, KindInvalidInput, "invalid_phone")
	_, err = e.auth.Register(ctx, RegisterInput{Phone: "+3611111111", Email: "c@example.com", Password: "short"})
	wantKind(t, err, KindInvalidInput, "weak_password")
}

func TestResendInvalidatesOlderCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "ana@example.com", "+3612345678")
	first := e.notifier.lastCode(t)
	if err := e.auth.ResendCode(ctx, "ana@example.com"); err != nil {
		t.Fatalf("ResendCode: %v", err)
	}
	second := e.notifier.lastCode(t)
	if first == second {
		t.Skip("random codes collided")
	}
	_, err := e.auth.VerifyEmail(ctx, "ana@example.com", first)
	wantKind(t, err, KindInvalidInput, "invalid_code")
	if _, err := e.auth.VerifyEmail(ctx, "ana@example.com", second); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	err = e.auth.ResendCode(ctx, "ana@example.com")
	wantKind(t, err, KindInvalidState, "already_verified")
}

func TestVerifyLocksAfterRepeatedWrongCodes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "ana@example.com", "+3612345678")
	good := e.notifier.lastCode(t)
	wrong := "000000"
	if good == wrong {
		wrong = "000001"
	}

	for i := 1; i < utils.MaxCodeAttempts; i++ {
		_, err := e.auth.VerifyEmail(ctx, "ana@example.com", wrong)
		wantKind(t, err, KindInvalidInput, "invalid_code")
	}
	_, err := e.auth.VerifyEmail(ctx, "ana@example.com", wrong)
	wantKind(t, err, KindInvalidState, "too_many_attempts")
	_, err = e.auth.VerifyEmail(ctx, "ana@example.com", good)
	wantKind(t, err, KindInvalidState, "too_many_attempts")

	if err := e.auth.ResendCode(ctx, "ana@example.com"); err != nil {
		t.Fatalf("ResendCode: %v", err)
	}
	if _, err := e.auth.VerifyEmail(ctx, "ana@example.com", e.notifier.lastCode(t)); err != nil {
		t.Fatalf("VerifyEmail after resend: %v", err)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "ana@example.com", "+3612345678", model.RoleUser)

	sess, err := e.auth.Login(ctx, u.Email, "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	next, err := e.auth.Refresh(ctx, sess.Refresh.Raw)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	_, err = e.auth.Refresh(ctx, sess.Refresh.Raw)
	wantKind(t, err, KindUnauthorized, "invalid_refresh")

	if err := e.auth.Logout(ctx, u.ID, ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = e.auth.Refresh(ctx, next.Refresh.Raw)
	wantKind(t, err, KindUnauthorized, "invalid_refresh")
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "ana@example.com", "+3612345678", model.RoleUser)
	got, err := e.auth.Me(context.Background(), u.ID)
	if err != nil || got.Email != u.Email {
		t.Fatalf("Me = %+v (%v)", got, err)
	}
	_, err = e.auth.Me(context.Background(), 0)
	wantKind(t, err, KindUnauthorized, "")
}
