package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	mw := RequestID()
	h := mw(handler)
	err := h(c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid != "my-custom-id" {
			t.Errorf("expected my-custom-id, got %s", rid)
		}
		return c.String(http.StatusOK, "ok")
	}

	mw := RequestID()
	h := mw(handler)
	h(c)

	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_LogsRequest(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	mw := Logger(logger)
	h := mw(handler)
	err := h(c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func panickingServer(base zerolog.Logger, withLogger bool, onPanic func(string)) *echo.Echo {
	e := echo.New()
	e.Use(Recovery(base, onPanic))
	e.Use(RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("client_id", "browser-a")
			return next(c)
		}
	})
	if withLogger {
		e.Use(Logger(base))
	}
	e.POST("/api/v1/booking/flows/:id/confirm", func(c echo.Context) error {
		panic("record store returned nil for " + c.Param("id"))
	})
	e.GET("/api/v1/queue", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestRecovery_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer
	var routes []string
	e := panickingServer(zerolog.New(&buf), true, func(route string) { routes = append(routes, route) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/flows/flow-7/confirm", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("flow-7")) {
		t.Errorf("panic value leaked to client: %s", rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(PanicMessage)) {
		t.Errorf("expected %q in body, got %s", PanicMessage, rec.Body.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single log line, got %s", buf.String())
	}
	if entry["request_id"] != "req-42" || entry["client_id"] != "browser-a" {
		t.Errorf("expected request-scoped fields, got %v", entry)
	}
	if entry["route"] != "/api/v1/booking/flows/:id/confirm" || entry["panic"] != "record store returned nil for flow-7" {
		t.Errorf("unexpected panic entry: %v", entry)
	}
	if len(routes) != 1 || routes[0] != "/api/v1/booking/flows/:id/confirm" {
		t.Errorf("expected onPanic with route template, got %v", routes)
	}
}

func TestRecovery_FallsBackToBaseLogger(t *testing.T) {
	var buf bytes.Buffer
	e := panickingServer(zerolog.New(&buf), false, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/flows/flow-7/confirm", nil)
	req.Header.Set(RequestIDHeader, "req-43")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("parse log line: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != "req-43" || entry["message"] != "handler panicked" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	e := panickingServer(zerolog.New(&buf), false, func(string) { t.Error("onPanic called without a panic") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %s", buf.String())
	}
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil), httptest.NewRecorder())
	h := Recovery(zerolog.Nop(), nil)(func(c echo.Context) error {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("expected http.ErrAbortHandler to propagate, got %v", r)
		}
	}()
	_ = h(c)
}

func TestLogger_AttachesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-123")
	c.Set("client_id", "browser-a")

	handler := func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Warn().Msg("inner")
		return echo.NewHTTPError(http.StatusBadRequest, "bad")
	}

	if err := Logger(logger)(handler)(c); err == nil {
		t.Fatal("expected handler error to propagate")
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var inner, summary map[string]interface{}
	if err := json.Unmarshal(lines[0], &inner); err != nil {
		t.Fatalf("parse inner line: %v", err)
	}
	if inner["request_id"] != "req-123" || inner["client_id"] != "browser-a" {
		t.Errorf("expected context logger fields, got %v", inner)
	}
	if err := json.Unmarshal(lines[1], &summary); err != nil {
		t.Fatalf("parse summary line: %v", err)
	}
	if summary["status"] != float64(http.StatusBadRequest) {
		t.Errorf("expected status 400, got %v", summary["status"])
	}
	if summary["path"] != "/api/v1/appointments" {
		t.Errorf("expected path logged, got %v", summary["path"])
	}
}
