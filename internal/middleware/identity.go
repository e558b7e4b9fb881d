package middleware

// identity.go holds the request-scoped session accessors.  JWTAuth
// stores the caller under the keys below; nothing else writes them.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/model"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"

	// SessionCookie carries the access token for page navigation.
	SessionCookie = "session"
)

// UserID returns the authenticated user's ID, or 0.
func UserID(c echo.Context) uint64 {
	id, _ := c.Get(ctxUserID).(uint64)
	return id
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) model.Role {
	r, _ := c.Get(ctxRole).(model.Role)
	return r
}

func setIdentity(c echo.Context, id uint64, role model.Role) {
	c.Set(ctxUserID, id)
	c.Set(ctxRole, role)
}

// userKey identifies the caller in rate-limit keys.
func userKey(c echo.Context) string {
	if id := UserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
