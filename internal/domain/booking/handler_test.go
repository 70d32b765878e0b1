package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService().svc), echo.New()
}

func TestHandler_GetCatalog(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.GetCatalog(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "General Practice") {
		t.Errorf("expected catalog body, got %s", rec.Body.String())
	}
}

func TestHandler_ListDoctors(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?department=pediatrics&specialist=any", nil), rec)
	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doctors []Doctor
	if err := json.Unmarshal(rec.Body.Bytes(), &doctors); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(doctors) != 1 || doctors[0].Name != "Dr. Seraphina Cai" {
		t.Errorf("unexpected doctors: %+v", doctors)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?department=oncology", nil), httptest.NewRecorder())
	if err := h.ListDoctors(c); err == nil {
		t.Error("expected error for unknown department")
	}
}

func TestHandler_FlowLifecycle(t *testing.T) {
	h, e := newTestHandler()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	if err := h.StartFlow(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var state FlowState
	json.Unmarshal(rec.Body.Bytes(), &state)

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(state.ID)
	err := h.Next(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete step, got %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"value":"cardiology"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(state.ID)
	if err := h.Select(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &state)
	if !state.CanAdvance || state.Selection.Department != "cardiology" {
		t.Errorf("unexpected state after select: %+v", state)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(state.ID)
	if err := h.Next(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &state)
	if state.StepName != "specialist" {
		t.Errorf("expected specialist step, got %s", state.StepName)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(state.ID)
	if err := h.Back(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandler_GetFlow_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")
	err := h.GetFlow(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_BookAndList(t *testing.T) {
	h, e := newTestHandler()
	body := `{"department":"general","specialist":"senior","date":"2026-03-15","doctor":"Dr. Emily Brown","time":"12:00 PM"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	appts, _ := h.svc.ListAppointments(context.Background())
	if len(appts) != 1 || appts[0].Date != "March 15, 2026" {
		t.Fatalf("unexpected appointments: %+v", appts)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one appointment listed, got %s", rec.Body.String())
	}
}

func TestHandler_BookIncomplete(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"department":"general"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	err := h.Book(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
