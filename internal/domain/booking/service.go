package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanjeevni/portal/internal/domain/notification"
	"github.com/sanjeevni/portal/internal/platform/metrics"
)

type Service struct {
	catalog  *Catalog
	flows    *Registry
	repo     AppointmentRepository
	notifier *notification.Emitter
	now      func() time.Time
	metrics  *metrics.Metrics
}

func NewService(catalog *Catalog, repo AppointmentRepository, notifier *notification.Emitter, m *metrics.Metrics) *Service {
	return &Service{
		catalog:  catalog,
		flows:    NewRegistry(catalog, time.Now),
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		metrics:  m,
	}
}

// SetClock replaces the time source used to reject past dates.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.flows.now = now
}

func (s *Service) Catalog() *Catalog { return s.catalog }

func (s *Service) StartFlow(ctx context.Context) FlowState {
	return s.flows.Create(ctx)
}

func (s *Service) GetFlow(ctx context.Context, id string) (FlowState, error) {
	var state FlowState
	err := s.flows.With(ctx, id, func(f *Flow) error {
		state = f.State()
		return nil
	})
	return state, err
}

func (s *Service) Select(ctx context.Context, id, value string) (FlowState, error) {
	return s.apply(ctx, id, func(f *Flow) error { return f.Select(value) })
}

func (s *Service) Next(ctx context.Context, id string) (FlowState, error) {
	return s.apply(ctx, id, (*Flow).Next)
}

func (s *Service) Back(ctx context.Context, id string) (FlowState, error) {
	return s.apply(ctx, id, (*Flow).Back)
}

func (s *Service) apply(ctx context.Context, id string, op func(f *Flow) error) (FlowState, error) {
	var state FlowState
	err := s.flows.With(ctx, id, func(f *Flow) error {
		if err := op(f); err != nil {
			return err
		}
		state = f.State()
		return nil
	})
	return state, err
}

// Confirm stores the flow's appointment, notifies the patient and resets the
// flow to its first step. The same doctor and slot may be booked twice.
// Storage writes happen outside the registry lock.
func (s *Service) Confirm(ctx context.Context, id string) (*Confirmation, error) {
	f, err := s.flows.Checkout(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.commit(ctx, f)
	s.flows.Release(ctx, id, err == nil)
	return c, err
}

// Book runs a complete selection through a fresh flow and commits it.
func (s *Service) Book(ctx context.Context, sel Selection) (*Confirmation, error) {
	f := NewFlow(s.catalog, s.now)
	steps := []string{sel.Department, sel.Specialist, sel.Date, sel.Doctor, sel.Time}
	for i, value := range steps {
		if err := f.Select(value); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Step(), err)
		}
		if i < len(steps)-1 {
			if err := f.Next(); err != nil {
				return nil, err
			}
		}
	}
	return s.commit(ctx, f)
}

func (s *Service) commit(ctx context.Context, f *Flow) (*Confirmation, error) {
	appt, err := f.Confirm()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Append(ctx, appt); err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	msg := fmt.Sprintf("Appointment booked with %s on %s at %s", appt.DoctorName, appt.Date, appt.Time)
	details := map[string]string{
		"appointmentId": appt.ID,
		"doctor":        appt.DoctorName,
		"department":    appt.Department,
		"date":          appt.Date,
		"time":          appt.Time,
	}
	if _, err := s.notifier.Emit(ctx, notification.TypeAppointment, msg, details); err != nil {
		// The appointment is already stored; lists are not written atomically.
		zerolog.Ctx(ctx).Error().Err(err).Str("appointment_id", appt.ID).Msg("appointment notification not stored")
	}
	s.metrics.BookingConfirmed()

	return &Confirmation{
		Appointment: appt,
		Message:     fmt.Sprintf("Appointment Confirmed! Your appointment with %s on %s at %s has been booked.", appt.DoctorName, appt.Date, appt.Time),
	}, nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.repo.List(ctx)
}
