package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	platformauth "github.com/sanjeevni/portal/internal/platform/auth"
	"github.com/sanjeevni/portal/internal/platform/store"
)

type Handler struct {
	svc    *Service
	tokens *platformauth.TokenIssuer
}

func NewHandler(svc *Service, tokens *platformauth.TokenIssuer) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

// RegisterRoutes mounts the auth endpoints. limiter guards the endpoints that
// accept credentials or codes.
func (h *Handler) RegisterRoutes(api *echo.Group, limiter echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/signup", h.Signup, limiter)
	g.POST("/login", h.Login, limiter)
	g.POST("/otp/request", h.RequestOTP, limiter)
	g.POST("/otp/verify", h.VerifyOTP, limiter)
	g.POST("/logout", h.Logout)
	g.GET("/session", h.Session)
}

type sessionResponse struct {
	Session   *Session  `json:"session"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Message   string    `json:"message,omitempty"`
}

var errorStatus = map[error]int{
	ErrAccountExists:      http.StatusConflict,
	ErrInvalidCredentials: http.StatusUnauthorized,
	ErrNotLoggedIn:        http.StatusUnauthorized,
	ErrOTPExpired:         http.StatusUnauthorized,
	ErrInvalidOTP:         http.StatusUnauthorized,
}

var validationErrors = []error{
	ErrNameRequired, ErrEmailRequired, ErrPasswordTooShort, ErrPasswordNoUpper,
	ErrPasswordNoLower, ErrPasswordNoNumber, ErrPasswordNoSpecial, ErrPasswordMismatch,
	ErrCredentialsRequired, ErrInvalidPhone,
}

func httpError(err error) error {
	for sentinel, code := range errorStatus {
		if errors.Is(err, sentinel) {
			return echo.NewHTTPError(code, sentinel.Error())
		}
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return echo.NewHTTPError(http.StatusBadRequest, sentinel.Error())
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) respond(c echo.Context, code int, session *Session, message string) error {
	clientID := store.ClientFromContext(c.Request().Context())
	token, expires, err := h.tokens.Issue(clientID, session.ID, session.Name, session.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(code, sessionResponse{
		Session:   session,
		Token:     token,
		ExpiresAt: expires,
		Message:   message,
	})
}

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.Signup(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return h.respond(c, http.StatusCreated, session, "Account created successfully! Welcome to Sanjeevni. You are now logged in.")
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return h.respond(c, http.StatusOK, session, "Login successful! Welcome back, "+session.Name+"!")
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Session(c echo.Context) error {
	session, err := h.svc.Current(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) RequestOTP(c echo.Context) error {
	var req OTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code, err := h.svc.RequestOTP(c.Request().Context(), req.Phone)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"code":      code,
		"expiresIn": int(h.svc.otpTTL.Seconds()),
		"message":   "OTP sent. Use code " + code + " to continue.",
	})
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req OTPVerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.VerifyOTP(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return h.respond(c, http.StatusOK, session, "Login successful! Welcome, "+session.Name+"!")
}
