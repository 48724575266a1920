package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/safecare/safecare/internal/platform/auth"
)

// Logger emits one structured line per request. The actor fields come from
// the auth middleware further down the chain, so the context is re-read
// after next(c); unauthenticated paths (health checks) log without them.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			ctx := c.Request().Context()
			if actorID := auth.ActorIDFromContext(ctx); actorID != "" {
				evt.Str("actor_id", actorID).Str("actor_role", auth.RoleFromContext(ctx))
			}

			evt.Msg("request")
			return err
		}
	}
}
