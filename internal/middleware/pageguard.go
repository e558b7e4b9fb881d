package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-ticketing/internal/model"
	"github.com/iliyamo/festival-ticketing/internal/utils"
)

// pageRule protects one page prefix.  allow nil means any signed-in
// role.
type pageRule struct {
	prefix string
	allow  func(model.Role) bool
}

var pageRules = []pageRule{
	{prefix: "/admin", allow: model.Role.IsAdmin},
	{prefix: "/approver", allow: model.Role.CanScan},
	{prefix: "/account"},
	{prefix: "/tickets"},
}

func matchPage(path string) (pageRule, bool) {
	for _, r := range pageRules {
		if path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			return r, true
		}
	}
	return pageRule{}, false
}

// PageGuard protects frontend pages.  Anonymous visitors are sent to
// /login with a callbackUrl; signed-in users with the wrong role go
// to /.  API paths are left to JWTAuth.
func PageGuard(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}
			rule, ok := matchPage(req.URL.Path)
			if !ok {
				return next(c)
			}
			raw := bearerOrCookie(req)
			claims, err := utils.ParseAccessToken(secret, raw)
			if raw == "" || err != nil {
				return c.Redirect(http.StatusSeeOther, "/login?callbackUrl="+url.QueryEscape(req.URL.RequestURI()))
			}
			if rule.allow != nil && !rule.allow(claims.Role) {
				return c.Redirect(http.StatusSeeOther, "/")
			}
			setIdentity(c, claims.UserID, claims.Role)
			return next(c)
		}
	}
}
