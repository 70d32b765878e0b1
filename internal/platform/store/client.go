package store

import (
	"context"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClientIDKey contextKey = "client_id"

	// ClientIDHeader identifies the browser/device whose records a request reads and writes.
	ClientIDHeader = "X-Client-ID"

	// DefaultClientID is used when nothing on the request names a client.
	DefaultClientID = "default"
)

var clientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidClientID reports whether id may be used as a storage namespace.
func ValidClientID(id string) bool {
	return clientIDPattern.MatchString(id)
}

// ClientMiddleware resolves the client namespace for the request and stores
// it on both the request context and the echo context.
func ClientMiddleware(defaultClient string) echo.MiddlewareFunc {
	if defaultClient == "" {
		defaultClient = DefaultClientID
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientID := extractClientID(c, defaultClient)
			if !ValidClientID(clientID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid client identifier")
			}

			c.SetRequest(c.Request().WithContext(WithClient(c.Request().Context(), clientID)))
			c.Set("client_id", clientID)
			return next(c)
		}
	}
}

func extractClientID(c echo.Context, defaultClient string) string {
	if cid := c.Request().Header.Get(ClientIDHeader); cid != "" {
		return cid
	}
	if cid := c.QueryParam("client_id"); cid != "" {
		return cid
	}
	return defaultClient
}

// WithClient returns a context scoped to the given client namespace.
func WithClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

// ClientFromContext returns the client namespace, or DefaultClientID when unset.
func ClientFromContext(ctx context.Context) string {
	if ctx == nil {
		return DefaultClientID
	}
	if cid, ok := ctx.Value(ClientIDKey).(string); ok && cid != "" {
		return cid
	}
	return DefaultClientID
}

// ClientKeyPrefix is the prefix shared by every key of one client.
func ClientKeyPrefix(clientID string) string {
	return "client:" + clientID + ":"
}

// Scoped builds the storage key for a record name in the context's client namespace.
func Scoped(ctx context.Context, name string) string {
	return ClientKeyPrefix(ClientFromContext(ctx)) + name
}
