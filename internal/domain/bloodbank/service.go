package bloodbank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sanjeevni/portal/internal/domain/notification"
	"github.com/sanjeevni/portal/internal/platform/metrics"
)

// Units a single request may ask for.
const (
	MinUnits = 1
	MaxUnits = 10
)

var (
	ErrMissingFields    = errors.New("Please fill in all required fields")
	ErrInvalidBloodType = errors.New("Please select a valid blood type")
	ErrInvalidQuantity  = errors.New("Quantity must be between 1 and 10 units")
)

type Service struct {
	repo      Repository
	inventory *Inventory
	notifier  *notification.Emitter
	now       func() time.Time
	metrics   *metrics.Metrics
}

func NewService(repo Repository, inventory *Inventory, notifier *notification.Emitter, m *metrics.Metrics) *Service {
	return &Service{repo: repo, inventory: inventory, notifier: notifier, now: time.Now, metrics: m}
}

func (s *Service) Availability(bloodType string) ([]Stock, error) {
	if bloodType != "" && !validBloodType(bloodType) {
		return nil, ErrInvalidBloodType
	}
	return s.inventory.Availability(bloodType), nil
}

func (s *Service) List(ctx context.Context) ([]BloodRequest, error) {
	return s.repo.List(ctx)
}

// Submit stores a pending request and notifies the patient.
func (s *Service) Submit(ctx context.Context, in SubmitRequest) (*BloodRequest, error) {
	bloodType := strings.TrimSpace(in.BloodType)
	hospital := strings.TrimSpace(in.Hospital)
	if bloodType == "" || hospital == "" || in.Quantity == 0 {
		return nil, ErrMissingFields
	}
	if !validBloodType(bloodType) {
		return nil, ErrInvalidBloodType
	}
	if in.Quantity < MinUnits || in.Quantity > MaxUnits {
		return nil, ErrInvalidQuantity
	}

	now := s.now()
	req := BloodRequest{
		ID:             uuid.New().String(),
		BloodType:      bloodType,
		Quantity:       in.Quantity,
		Hospital:       hospital,
		PatientDetails: strings.TrimSpace(in.PatientDetails),
		Status:         StatusPending,
		Date:           now.Format("2006-01-02"),
		Time:           now.Format(notification.DisplayTimeLayout),
	}
	if err := s.repo.Append(ctx, req); err != nil {
		return nil, fmt.Errorf("save blood request: %w", err)
	}

	msg := fmt.Sprintf("Blood request submitted for %d unit(s) of %s at %s", req.Quantity, req.BloodType, req.Hospital)
	details := map[string]string{
		"requestId": req.ID,
		"bloodType": req.BloodType,
		"hospital":  req.Hospital,
	}
	if _, err := s.notifier.Emit(ctx, notification.TypeBlood, msg, details); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("request_id", req.ID).Msg("blood request notification not stored")
	}
	s.metrics.BloodRequested()
	return &req, nil
}
