// Package server assembles the echo router from the handlers and middleware.
package server

import (
	authhandler "github.com/Betmate-ap/betmate-api/internal/auth/handler"
	healthhandler "github.com/Betmate-ap/betmate-api/internal/health/handler"
	"github.com/Betmate-ap/betmate-api/internal/security"
	"github.com/Betmate-ap/betmate-api/internal/server/middleware"
	"github.com/Betmate-ap/betmate-api/internal/telemetry"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Deps holds everything Register needs to wire the routes.
type Deps struct {
	AuthHandler   *authhandler.AuthHandler
	HealthHandler *healthhandler.HealthHandler
	Tokens        *security.TokenProvider
	Emitter       telemetry.EventEmitter
}

// Register wires middleware and routes onto e. Health endpoints skip
// telemetry; /me requires an authenticated caller.
func Register(e *echo.Echo, d *Deps) {
	e.Use(echomw.Recover())
	e.Use(middleware.Identity(d.Tokens))
	e.Use(middleware.Telemetry(d.Emitter, map[string]bool{
		"/health/live":  true,
		"/health/ready": true,
	}))

	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)

	e.POST("/auth/signup", d.AuthHandler.Signup)
	e.POST("/auth/login", d.AuthHandler.Login)
	e.POST("/auth/refresh", d.AuthHandler.Refresh)
	e.POST("/auth/logout", d.AuthHandler.Logout)

	private := e.Group("")
	private.Use(middleware.RequireAuth())
	private.GET("/me", d.AuthHandler.Me)
}
