package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanjeevni/portal/internal/platform/metrics"
)

// DefaultCap is the number of notifications a client keeps.
const DefaultCap = 10

// EventType is the live event name notifications are pushed under.
const EventType = "notification"

// Publisher pushes an event to the connected sessions of the context's client.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Emitter appends notifications to a client's feed, newest first, keeping at
// most Cap entries.
type Emitter struct {
	repo    Repository
	cap     int
	now     func() time.Time
	metrics *metrics.Metrics
	pub     Publisher
}

func NewEmitter(repo Repository, capacity int, m *metrics.Metrics) *Emitter {
	if capacity < 1 {
		capacity = DefaultCap
	}
	return &Emitter{repo: repo, cap: capacity, now: time.Now, metrics: m}
}

// SetClock replaces the emitter's time source.
func (e *Emitter) SetClock(now func() time.Time) {
	e.now = now
}

// SetPublisher enables live delivery of emitted notifications.
func (e *Emitter) SetPublisher(p Publisher) {
	e.pub = p
}

func (e *Emitter) Cap() int { return e.cap }

func (e *Emitter) Emit(ctx context.Context, kind, message string, details map[string]string) (*Notification, error) {
	now := e.now()
	n := Notification{
		Type:      kind,
		Message:   message,
		Time:      now.Format(DisplayTimeLayout),
		Timestamp: now.UTC(),
		Details:   details,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := e.repo.Prepend(ctx, n, e.cap); err != nil {
		return nil, fmt.Errorf("emit %s notification: %w", kind, err)
	}
	e.metrics.NotificationEmitted(kind)
	if e.pub != nil {
		if err := e.pub.Publish(ctx, EventType, n); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("type", kind).Msg("live notification not delivered")
		}
	}
	return &n, nil
}

func (e *Emitter) List(ctx context.Context) ([]Notification, error) {
	return e.repo.List(ctx)
}

func (e *Emitter) Clear(ctx context.Context) error {
	return e.repo.Clear(ctx)
}
