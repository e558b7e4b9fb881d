package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/middleware"
	"github.com/iliyamo/festival-ticketing/internal/service"
)

// AuthHandler serves registration, verification and the session
// lifecycle.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *slog.Logger
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

func NewAuthHandler(auth *service.AuthService, log *slog.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{Auth: auth, Log: log, SecureCookies: secureCookies}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailReq struct {
	Email string `json:"email"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type sessionResp struct {
	User    userResp  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func (h *AuthHandler) setSession(c echo.Context, s service.Session) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.Access.Token,
		Path:     "/",
		Expires:  s.Access.Exp,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) writeSession(c echo.Context, s service.Session) error {
	h.setSession(c, s)
	return c.JSON(http.StatusOK, sessionResp{
		User:    toUser(s.User),
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp},
	})
}

// Register creates an unverified account and sends a code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"user":    toUser(u),
		"message": "verification code sent",
	})
}

// Verify confirms the email address with the emailed code.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.VerifyEmail(ctx, req.Email, req.Code)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUser(u)})
}

// Resend issues a fresh verification code.
func (h *AuthHandler) Resend(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.ResendCode(ctx, req.Email); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent"})
}

// Login returns an access/refresh pair and sets the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "invalid_input", "email and password are required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return h.writeSession(c, s)
}

// Refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return h.writeSession(c, s)
}

// Logout revokes the given refresh token, or every token of the
// signed-in caller, and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.UserID(c), req.RefreshToken); err != nil {
		return writeError(c, h.Log, err)
	}
	h.clearSession(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in account.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, middleware.UserID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}
