package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/utils"
)

// bearerOrCookie extracts the access token from the Authorization
// header, falling back to the session cookie.
func bearerOrCookie(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// JWTAuth rejects requests without a valid session token and stores
// the caller's ID and role on the context (see UserID and Role).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerOrCookie(c.Request())
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid or expired session"})
			}
			setIdentity(c, claims.UserID, claims.Role)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth without the rejection: an invalid or missing
// token leaves the request anonymous.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearerOrCookie(c.Request()); raw != "" {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					setIdentity(c, claims.UserID, claims.Role)
				}
			}
			return next(c)
		}
	}
}
