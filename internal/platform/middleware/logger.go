package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one structured line per request. Requests that touch a
// resuscitation case also carry the case id so a case can be followed
// across the log.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			status := c.Response().Status
			evt := logger.Info()
			switch {
			case err != nil:
				evt = logger.Error().Err(err)
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
					if he.Code < 500 {
						evt = logger.Warn().Err(err)
					}
				}
			case status >= 500:
				evt = logger.Error()
			}

			if caseID := c.Param("id"); caseID != "" {
				evt = evt.Str("case_id", caseID)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
