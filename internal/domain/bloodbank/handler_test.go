package bloodbank

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_SubmitAndList(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bloodType":"B+","quantity":3,"hospital":"Central Blood Bank"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	if err := h.ListRequests(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"bloodType":"B+"`) {
		t.Errorf("expected listed request, got %s", rec.Body.String())
	}
}

func TestHandler_SubmitMissingFields(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bloodType":"B+"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.Submit(e.NewContext(req, httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest || httpErr.Message != "Please fill in all required fields" {
		t.Errorf("expected 400 with required-fields message, got %v", err)
	}
}

func TestHandler_Availability(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?type=A-", nil), rec)
	if err := h.Availability(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"Critical"`) {
		t.Errorf("expected critical A- stock, got %s", rec.Body.String())
	}
}
