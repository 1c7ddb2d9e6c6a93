// Package identity resolves the caller identity for an HTTP request from the
// access token it carries. Resolution is best-effort: a missing or invalid
// token yields an anonymous request, never an error. Endpoints that require
// authentication enforce it themselves via middleware.
package identity

import (
	"net/http"
	"strings"

	"github.com/Betmate-ap/betmate-api/internal/security"
)

const (
	bearerPrefix = "bearer "

	// AccessCookieName is the fallback cookie consulted when no Authorization
	// header is present.
	AccessCookieName = "accessToken"
)

// Principal is the resolved caller of a request.
type Principal struct {
	UserID string
}

// ExtractToken returns the access token candidate from r: the Authorization
// Bearer header if present, otherwise the accessToken cookie. Returns "" when
// neither carries a token. The header always wins, even when malformed.
func ExtractToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) >= len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(h[len(bearerPrefix):])
		}
		return ""
	}
	if c, err := r.Cookie(AccessCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// Resolve returns the Principal for r, or nil for an anonymous request.
// Only access-kind tokens are accepted; refresh tokens and any validation
// failure resolve to anonymous.
func Resolve(r *http.Request, tokens *security.TokenProvider) *Principal {
	token := ExtractToken(r)
	if token == "" {
		return nil
	}
	userID, err := tokens.ValidateAccess(token)
	if err != nil {
		return nil
	}
	return &Principal{UserID: userID}
}
