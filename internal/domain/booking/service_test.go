package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sanjeevni/portal/internal/domain/notification"
	"github.com/sanjeevni/portal/internal/platform/store"
)

type testDeps struct {
	svc      *Service
	repo     AppointmentRepository
	notifier *notification.Emitter
}

func newTestService() testDeps {
	kv := store.NewMemoryKV()
	repo := NewStoreRepo(kv)
	notifier := notification.NewEmitter(notification.NewStoreRepo(kv), 10, nil)
	svc := NewService(DefaultCatalog(), repo, notifier, nil)
	svc.SetClock(func() time.Time { return testNow })
	return testDeps{svc: svc, repo: repo, notifier: notifier}
}

func completeFlow(t *testing.T, svc *Service, ctx context.Context) string {
	t.Helper()
	state := svc.StartFlow(ctx)
	for i, v := range []string{"cardiology", LevelAny, "2026-03-12", "Dr. Elara Vance", "09:00 AM"} {
		if _, err := svc.Select(ctx, state.ID, v); err != nil {
			t.Fatalf("Select(%q): %v", v, err)
		}
		if i < 4 {
			if _, err := svc.Next(ctx, state.ID); err != nil {
				t.Fatalf("Next(): %v", err)
			}
		}
	}
	return state.ID
}

func TestService_ConfirmAppendsOneAppointmentAndOneNotification(t *testing.T) {
	d := newTestService()
	ctx := context.Background()
	id := completeFlow(t, d.svc, ctx)

	conf, err := d.svc.Confirm(ctx, id)
	if err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if conf.Message == "" {
		t.Error("expected a confirmation message")
	}

	appts, _ := d.repo.List(ctx)
	if len(appts) != 1 || appts[0].ID != conf.Appointment.ID {
		t.Fatalf("expected exactly the confirmed appointment, got %+v", appts)
	}

	notes, _ := d.notifier.List(ctx)
	if len(notes) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notes))
	}
	want := "Appointment booked with Dr. Elara Vance on March 12, 2026 at 09:00 AM"
	if notes[0].Message != want || notes[0].Type != notification.TypeAppointment {
		t.Errorf("unexpected notification: %+v", notes[0])
	}

	state, err := d.svc.GetFlow(ctx, id)
	if err != nil {
		t.Fatalf("GetFlow() error: %v", err)
	}
	if state.Step != int(StepDepartment) || state.Selection != (Selection{}) {
		t.Errorf("expected flow reset after confirm, got %+v", state)
	}
}

func TestService_ConfirmIncompleteFlow(t *testing.T) {
	d := newTestService()
	ctx := context.Background()
	state := d.svc.StartFlow(ctx)

	if _, err := d.svc.Confirm(ctx, state.ID); !errors.Is(err, ErrIncompleteBooking) {
		t.Fatalf("expected ErrIncompleteBooking, got %v", err)
	}
	appts, _ := d.repo.List(ctx)
	if len(appts) != 0 {
		t.Errorf("expected no appointment, got %d", len(appts))
	}
}

func TestService_DoubleBookingAllowed(t *testing.T) {
	d := newTestService()
	ctx := context.Background()
	sel := Selection{Department: "neurology", Specialist: LevelSenior, Date: "2026-03-20", Doctor: "Dr. Kaelen Rhys", Time: "02:00 PM"}

	for i := 0; i < 2; i++ {
		if _, err := d.svc.Book(ctx, sel); err != nil {
			t.Fatalf("Book() #%d error: %v", i+1, err)
		}
	}
	appts, _ := d.svc.ListAppointments(ctx)
	if len(appts) != 2 {
		t.Errorf("expected 2 appointments for the same slot, got %d", len(appts))
	}
}

func TestService_BookValidatesEachStep(t *testing.T) {
	d := newTestService()
	_, err := d.svc.Book(context.Background(), Selection{Department: "cardiology", Specialist: LevelAny, Date: "2026-03-12", Doctor: "Dr. Kaelen Rhys", Time: "01:00 PM"})
	if !errors.Is(err, ErrUnavailableDoctor) {
		t.Fatalf("expected ErrUnavailableDoctor, got %v", err)
	}
}

func TestService_FlowsAreScopedToClient(t *testing.T) {
	d := newTestService()
	a := store.WithClient(context.Background(), "browser-a")
	b := store.WithClient(context.Background(), "browser-b")

	state := d.svc.StartFlow(a)
	if _, err := d.svc.GetFlow(b, state.ID); !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("expected ErrFlowNotFound from another client, got %v", err)
	}
}

func TestRegistry_EvictsOldestFlow(t *testing.T) {
	r := NewRegistry(DefaultCatalog(), nil)
	ctx := context.Background()
	first := r.Create(ctx)
	for i := 0; i < maxFlowsPerClient; i++ {
		r.Create(ctx)
	}
	err := r.With(ctx, first.ID, func(f *Flow) error { return nil })
	if !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("expected oldest flow evicted, got %v", err)
	}
}

func TestService_ConcurrentBookingsKeepEveryAppointment(t *testing.T) {
	d := newTestService()
	ctx := context.Background()
	sel := Selection{Department: "pediatrics", Specialist: LevelConsultant, Date: "2026-03-15", Doctor: "Dr. Seraphina Cai", Time: "10:00 AM"}

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.svc.Book(ctx, sel)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Book() error: %v", err)
		}
	}

	appts, _ := d.repo.List(ctx)
	if len(appts) != n {
		t.Fatalf("confirmed %d bookings, stored %d appointments", n, len(appts))
	}
	notes, _ := d.notifier.List(ctx)
	if len(notes) != d.notifier.Cap() {
		t.Errorf("expected notification feed full at %d, got %d", d.notifier.Cap(), len(notes))
	}
}

// blockingRepo holds Append until release is closed.
type blockingRepo struct {
	AppointmentRepository
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRepo) Append(ctx context.Context, a Appointment) error {
	close(r.entered)
	<-r.release
	return r.AppointmentRepository.Append(ctx, a)
}

func TestService_ConfirmWritesOutsideRegistryLock(t *testing.T) {
	kv := store.NewMemoryKV()
	repo := &blockingRepo{
		AppointmentRepository: NewStoreRepo(kv),
		entered:               make(chan struct{}),
		release:               make(chan struct{}),
	}
	notifier := notification.NewEmitter(notification.NewStoreRepo(kv), 10, nil)
	svc := NewService(DefaultCatalog(), repo, notifier, nil)
	svc.SetClock(func() time.Time { return testNow })

	a := store.WithClient(context.Background(), "browser-a")
	b := store.WithClient(context.Background(), "browser-b")
	id := completeFlow(t, svc, a)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Confirm(a, id)
		done <- err
	}()
	<-repo.entered

	other := svc.StartFlow(b)
	if _, err := svc.Select(b, other.ID, "neurology"); err != nil {
		t.Fatalf("other client blocked by a pending confirm: %v", err)
	}
	if _, err := svc.GetFlow(a, id); !errors.Is(err, ErrFlowBusy) {
		t.Errorf("expected ErrFlowBusy while confirming, got %v", err)
	}
	if _, err := svc.Confirm(a, id); !errors.Is(err, ErrFlowBusy) {
		t.Errorf("expected second confirm rejected, got %v", err)
	}

	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	state, err := svc.GetFlow(a, id)
	if err != nil {
		t.Fatalf("GetFlow() after confirm: %v", err)
	}
	if state.Step != int(StepDepartment) {
		t.Errorf("expected flow reset, got step %d", state.Step)
	}
}

func TestService_FailedConfirmKeepsSelection(t *testing.T) {
	d := newTestService()
	ctx := context.Background()
	state := d.svc.StartFlow(ctx)
	d.svc.Select(ctx, state.ID, "cardiology")

	if _, err := d.svc.Confirm(ctx, state.ID); !errors.Is(err, ErrIncompleteBooking) {
		t.Fatalf("expected ErrIncompleteBooking, got %v", err)
	}
	got, err := d.svc.GetFlow(ctx, state.ID)
	if err != nil {
		t.Fatalf("flow should be released after a failed confirm: %v", err)
	}
	if got.Selection.Department != "cardiology" {
		t.Errorf("expected selection kept, got %+v", got.Selection)
	}
}
