package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PanicMessage is the only detail a client sees when a handler panics.
const PanicMessage = "Something went wrong. Please try again."

// Recovery turns a handler panic into a 500. It logs through the
// request-scoped logger when Logger has attached one, so the entry carries
// the request and client ids, and falls back to base otherwise. onPanic, if
// set, is called with the matched route.
func Recovery(base zerolog.Logger, onPanic func(route string)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				logger := zerolog.Ctx(c.Request().Context())
				if logger.GetLevel() == zerolog.Disabled {
					l := base.With().Str("request_id", requestID(c)).Logger()
					logger = &l
				}
				logger.Error().
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				if onPanic != nil {
					onPanic(c.Path())
				}
				err = echo.NewHTTPError(http.StatusInternalServerError, PanicMessage)
			}()
			return next(c)
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
