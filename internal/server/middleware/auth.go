package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Betmate-ap/betmate-api/internal/identity"
	"github.com/Betmate-ap/betmate-api/internal/security"
)

// Identity returns middleware that resolves the caller from the request's
// access token (Bearer header, then accessToken cookie) and stores the user
// id and client IP in the request context. Resolution never fails the
// request; unauthenticated callers proceed anonymously.
func Identity(tokens *security.TokenProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			ctx := WithClientIP(r.Context(), c.RealIP())
			if p := identity.Resolve(r, tokens); p != nil {
				ctx = WithUserID(ctx, p.UserID)
			}
			c.SetRequest(r.WithContext(ctx))
			return next(c)
		}
	}
}

// RequireAuth returns middleware that rejects requests whose context carries
// no resolved user. Must run after Identity.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := GetUserID(c.Request().Context()); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
			}
			return next(c)
		}
	}
}
