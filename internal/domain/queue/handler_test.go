package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_ListAndReload(t *testing.T) {
	d := newTestSimulator()
	d.appts.Append(context.Background(), appt("1", "Dr. Seraphina Cai", "Pediatrics"))
	h := NewHandler(d.sim)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(entries) != 1 || entries[0].DoctorName != "Dr. Seraphina Cai" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	d.appts.Append(context.Background(), appt("2", "Dr. Emily Brown", "General Practice"))
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	if err := h.Reload(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &entries)
	if len(entries) != 2 {
		t.Errorf("expected 2 entries after reload, got %d", len(entries))
	}
}
