package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets the response headers every portal API response carries.
// Responses hold patient data, so nothing is cached. hsts is off in
// development, where the portal is served over plain http on localhost and a
// pinned HSTS entry would break the dev server for that browser.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}
