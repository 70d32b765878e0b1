package queue

import (
	"math/rand"
	"testing"

	"github.com/sanjeevni/portal/internal/domain/booking"
)

func appt(id, doctor, department string) booking.Appointment {
	return booking.Appointment{ID: id, DoctorName: doctor, Department: department, Date: "March 12, 2026", Time: "09:00 AM", Status: booking.StatusConfirmed}
}

func TestDerive_GroupsByDoctorInFirstSeenOrder(t *testing.T) {
	appts := []booking.Appointment{
		appt("1", "Dr. Kaelen Rhys", "Neurology"),
		appt("2", "Dr. Elara Vance", "Cardiology"),
		appt("3", "Dr. Kaelen Rhys", "Neurology"),
	}
	entries := Derive(appts, rand.New(rand.NewSource(1)), 5)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].DoctorName != "Dr. Kaelen Rhys" || entries[1].DoctorName != "Dr. Elara Vance" {
		t.Errorf("unexpected order: %s, %s", entries[0].DoctorName, entries[1].DoctorName)
	}
	for _, e := range entries {
		if e.CurrentPosition < 1 || e.CurrentPosition > 10 {
			t.Errorf("position %d outside 1..10", e.CurrentPosition)
		}
		if e.EstimatedWait != e.CurrentPosition*5 {
			t.Errorf("expected wait %d, got %d", e.CurrentPosition*5, e.EstimatedWait)
		}
		wantStatus := StatusWaiting
		if e.CurrentPosition == 1 {
			wantStatus = StatusNext
		}
		if e.Status != wantStatus {
			t.Errorf("position %d: expected status %s, got %s", e.CurrentPosition, wantStatus, e.Status)
		}
	}
}

func TestDerive_Empty(t *testing.T) {
	entries := Derive(nil, rand.New(rand.NewSource(1)), 5)
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil entries, got %v", entries)
	}
}

func TestAdvance_MonotonicUntilNext(t *testing.T) {
	entries := []Entry{
		newEntry("Dr. Elara Vance", "Cardiology", 4, 5),
		newEntry("Dr. Kaelen Rhys", "Neurology", 1, 5),
	}

	prev := entries
	for tick := 0; tick < 6; tick++ {
		next, _ := Advance(prev, 1, 5)
		for i := range next {
			if next[i].CurrentPosition > prev[i].CurrentPosition {
				t.Fatalf("tick %d: position rose from %d to %d", tick, prev[i].CurrentPosition, next[i].CurrentPosition)
			}
			if next[i].CurrentPosition < 1 {
				t.Fatalf("tick %d: position fell below 1", tick)
			}
			if next[i].CurrentPosition == 1 && next[i].Status != StatusNext {
				t.Fatalf("tick %d: expected status next at position 1", tick)
			}
		}
		prev = next
	}
	if prev[0].CurrentPosition != 1 || prev[0].EstimatedWait != 5 {
		t.Errorf("expected first entry settled at 1 with wait 5, got %+v", prev[0])
	}
}

func TestAdvance_ReportsChangesAndIsPure(t *testing.T) {
	entries := []Entry{
		newEntry("Dr. Elara Vance", "Cardiology", 3, 5),
		newEntry("Dr. Kaelen Rhys", "Neurology", 1, 5),
	}

	next, changes := Advance(entries, 1, 5)
	if entries[0].CurrentPosition != 3 {
		t.Error("Advance modified its input")
	}
	if next[0].CurrentPosition != 2 || next[0].Status != StatusWaiting || next[0].EstimatedWait != 10 {
		t.Errorf("unexpected advanced entry: %+v", next[0])
	}
	if len(changes) != 1 || changes[0] != (Change{DoctorName: "Dr. Elara Vance", From: 3, To: 2}) {
		t.Errorf("unexpected changes: %+v", changes)
	}
}

func TestAdvance_MultipleTicksClampAtOne(t *testing.T) {
	entries := []Entry{newEntry("Dr. Seraphina Cai", "Pediatrics", 3, 5)}
	next, changes := Advance(entries, 10, 5)
	if next[0].CurrentPosition != 1 || next[0].Status != StatusNext {
		t.Errorf("expected clamp to 1, got %+v", next[0])
	}
	if len(changes) != 1 || changes[0].To != 1 {
		t.Errorf("unexpected changes: %+v", changes)
	}

	same, changes := Advance(entries, 0, 5)
	if same[0].CurrentPosition != 3 || len(changes) != 0 {
		t.Errorf("expected zero ticks to change nothing, got %+v %+v", same, changes)
	}
}
