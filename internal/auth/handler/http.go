// Package handler exposes the auth service over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Betmate-ap/betmate-api/internal/auth/service"
	"github.com/Betmate-ap/betmate-api/internal/identity"
	"github.com/Betmate-ap/betmate-api/internal/server/middleware"
)

// RefreshCookieName is the HTTP-only cookie carrying the refresh token for
// browser clients. API clients send the token in the request body instead.
const RefreshCookieName = "refreshToken"

// AuthHandler handles the /auth endpoints and /me.
type AuthHandler struct {
	svc          *service.AuthService
	refreshTTL   time.Duration
	cookieSecure bool
}

// NewAuthHandler returns an AuthHandler. cookieSecure should be true in
// production so the refresh cookie is only sent over TLS.
func NewAuthHandler(svc *service.AuthService, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{svc: svc, refreshTTL: refreshTTL, cookieSecure: cookieSecure}
}

type signupRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	payload, err := h.svc.Signup(c.Request().Context(), service.SignupInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return serviceError(err)
	}
	h.setRefreshCookie(c, payload.RefreshToken)
	return c.JSON(http.StatusCreated, payload)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	payload, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}
	h.setRefreshCookie(c, payload.RefreshToken)
	return c.JSON(http.StatusOK, payload)
}

// Refresh handles POST /auth/refresh. The refresh token comes from the
// request body when present, otherwise from the refreshToken cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	payload, err := h.svc.Refresh(c.Request().Context(), h.refreshTokenFrom(c))
	if err != nil {
		return serviceError(err)
	}
	h.setRefreshCookie(c, payload.RefreshToken)
	return c.JSON(http.StatusOK, payload)
}

// Logout handles POST /auth/logout. Always clears the cookies; unknown
// tokens are not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context(), h.refreshTokenFrom(c)); err != nil {
		return serviceError(err)
	}
	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me handles GET /me for the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := middleware.GetUserID(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
	}
	user, err := h.svc.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) refreshTokenFrom(c echo.Context) string {
	var req refreshRequest
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(RefreshCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/auth",
		MaxAge:   int(h.refreshTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	for _, ck := range []struct{ name, path string }{
		{RefreshCookieName, "/auth"},
		{identity.AccessCookieName, "/"},
	} {
		c.SetCookie(&http.Cookie{
			Name:     ck.name,
			Value:    "",
			Path:     ck.path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// serviceError maps a service error to an HTTP error with a stable code.
// Errors outside the service taxonomy are redacted to a generic 500.
func serviceError(err error) error {
	code := service.Code(err)
	if code == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	return echo.NewHTTPError(statusFor(err), echo.Map{
		"code":    code,
		"message": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordTooLong):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountDeactivated):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
