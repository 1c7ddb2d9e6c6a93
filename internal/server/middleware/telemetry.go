package middleware

import (
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Betmate-ap/betmate-api/internal/telemetry"
	"github.com/Betmate-ap/betmate-api/internal/telemetry/domain"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry returns middleware that emits a telemetry event after each request.
// Best-effort: failures are logged and do not fail the request. If emitter is nil,
// the middleware no-ops. skipPaths is the set of paths to not emit (e.g. health checks).
func Telemetry(emitter telemetry.EventEmitter, skipPaths map[string]bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if emitter == nil || skipPaths[c.Path()] {
				return err
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			ctx := c.Request().Context()
			meta := httpRequestMetadata{
				Method:     c.Request().Method,
				Path:       c.Path(),
				StatusCode: status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   GetClientIP(ctx),
			}
			metaJSON, _ := json.Marshal(meta)
			userID, _ := GetUserID(ctx)
			telemetry.EmitAsync(emitter, ctx, &domain.Event{
				UserID:    userID,
				EventType: "http_request",
				Source:    "http_middleware",
				Metadata:  metaJSON,
				CreatedAt: time.Now().UTC(),
			})
			return err
		}
	}
}
