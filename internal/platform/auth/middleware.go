package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/sanjeevni/portal/internal/platform/store"
)

type contextKey string

const UserIDKey contextKey = "user_id"

const tokenIssuer = "sanjeevni-portal"

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies a logged-in user within one client namespace.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenIssuer(key []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for userID and its expiry.
func (i *TokenIssuer) Issue(clientID, userID, name, email string) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		ClientID: clientID,
		Name:     name,
		Email:    email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

func (i *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SessionLookup returns the user id of the client's stored session.
type SessionLookup func(ctx context.Context) (userID string, ok bool, err error)

type SessionConfig struct {
	Issuer *TokenIssuer
	// Sessions reads the client's stored session. A token is only honoured
	// while the session it was issued for is still stored, so logout ends it.
	Sessions SessionLookup
	// AllowStoredSession admits requests without a token when the client has
	// a stored session. Only set in development.
	AllowStoredSession bool
}

// AccessTokenParam carries the session token on GET requests that cannot
// set an Authorization header.
const AccessTokenParam = "access_token"

// RequireSession rejects requests that carry no valid session for the
// request's client namespace.
func RequireSession(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" && c.Request().Method == http.MethodGet {
				// Browsers cannot set headers on a WebSocket upgrade.
				if tok := c.QueryParam(AccessTokenParam); tok != "" {
					authHeader = "Bearer " + tok
				}
			}

			if authHeader == "" && !cfg.AllowStoredSession {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			subject := ""
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
				}

				claims, err := cfg.Issuer.Parse(parts[1])
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				if claims.ClientID != store.ClientFromContext(ctx) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token issued for another client")
				}
				subject = claims.Subject
			}

			if cfg.Sessions == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session store not configured")
			}
			userID, ok, err := cfg.Sessions(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
			}
			if subject != "" && subject != userID {
				return echo.NewHTTPError(http.StatusUnauthorized, "session has ended")
			}

			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, UserIDKey, userID)))
			return next(c)
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}
