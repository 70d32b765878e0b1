package queue

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestScheduler_Spec(t *testing.T) {
	s := NewScheduler(newTestSimulator().sim, 0, zerolog.Nop())
	if s.Spec() != "@every 30s" {
		t.Errorf("expected default spec @every 30s, got %s", s.Spec())
	}
}

func TestScheduler_RunsTicks(t *testing.T) {
	d := newTestSimulator()
	ctx := context.Background()
	d.appts.Append(ctx, appt("1", "Dr. Elara Vance", "Cardiology"))
	entries, _ := d.sim.Entries(ctx)
	if entries[0].CurrentPosition == 1 {
		t.Skip("seeded position already at 1")
	}

	s := NewScheduler(d.sim, time.Second, zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		notes, _ := d.notifier.List(ctx)
		if len(notes) > 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("expected a queue notification from the scheduled tick")
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(newTestSimulator().sim, time.Minute, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
