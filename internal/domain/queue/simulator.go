package queue

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanjeevni/portal/internal/domain/booking"
	"github.com/sanjeevni/portal/internal/domain/notification"
	"github.com/sanjeevni/portal/internal/platform/metrics"
	"github.com/sanjeevni/portal/internal/platform/store"
)

const (
	// maxQueueClients bounds how many client queues are held in memory. The
	// least recently viewed queue is evicted first.
	maxQueueClients = 10000
	// settledQueueTTL is how long a queue with nothing left to advance is
	// kept after its client last viewed it.
	settledQueueTTL = 30 * time.Minute
)

type clientQueue struct {
	entries []Entry
	seen    time.Time
}

// Simulator keeps the derived queue of every client that has viewed it
// recently and advances all of them on Tick. A queue dropped from memory is
// re-derived from stored appointments on the next view.
type Simulator struct {
	mu                sync.Mutex
	queues            map[string]*clientQueue
	maxClients        int
	now               func() time.Time
	rng               *rand.Rand
	appts             booking.AppointmentRepository
	notifier          *notification.Emitter
	minutesPerPatient int
	logger            zerolog.Logger
	metrics           *metrics.Metrics
}

func NewSimulator(appts booking.AppointmentRepository, notifier *notification.Emitter, minutesPerPatient int, logger zerolog.Logger, m *metrics.Metrics) *Simulator {
	if minutesPerPatient < 1 {
		minutesPerPatient = DefaultMinutesPerPatient
	}
	return &Simulator{
		queues:            make(map[string]*clientQueue),
		maxClients:        maxQueueClients,
		now:               time.Now,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		appts:             appts,
		notifier:          notifier,
		minutesPerPatient: minutesPerPatient,
		logger:            logger,
		metrics:           m,
	}
}

// SetRand replaces the source of initial positions.
func (s *Simulator) SetRand(rng *rand.Rand) {
	s.mu.Lock()
	s.rng = rng
	s.mu.Unlock()
}

// Load re-derives the client's queue from its stored appointments.
func (s *Simulator) Load(ctx context.Context) ([]Entry, error) {
	appts, err := s.appts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := Derive(appts, s.rng, s.minutesPerPatient)
	client := store.ClientFromContext(ctx)
	if _, ok := s.queues[client]; !ok && len(s.queues) >= s.maxClients {
		s.evictOldest()
	}
	s.queues[client] = &clientQueue{entries: entries, seen: s.now()}
	return copyEntries(entries), nil
}

// evictOldest drops the least recently viewed queue. Caller holds mu.
func (s *Simulator) evictOldest() {
	var oldest string
	var at time.Time
	for client, q := range s.queues {
		if oldest == "" || q.seen.Before(at) {
			oldest, at = client, q.seen
		}
	}
	delete(s.queues, oldest)
}

// Clients reports how many client queues are held in memory.
func (s *Simulator) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

// Entries returns the client's queue, deriving it on first use.
func (s *Simulator) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	q, ok := s.queues[store.ClientFromContext(ctx)]
	var entries []Entry
	if ok {
		q.seen = s.now()
		entries = copyEntries(q.entries)
	}
	s.mu.Unlock()
	if ok {
		return entries, nil
	}
	return s.Load(ctx)
}

// Tick advances every loaded queue by one place and notifies each client of
// every position that changed. Empty queues, and settled queues not viewed
// within settledQueueTTL, are dropped afterwards.
func (s *Simulator) Tick(ctx context.Context) error {
	pending := make(map[string][]Change)

	s.mu.Lock()
	now := s.now()
	clients := make([]string, 0, len(s.queues))
	for client := range s.queues {
		clients = append(clients, client)
	}
	sort.Strings(clients)
	dropped := 0
	for _, client := range clients {
		q := s.queues[client]
		next, changes := Advance(q.entries, 1, s.minutesPerPatient)
		q.entries = next
		if len(changes) > 0 {
			pending[client] = changes
		}
		if len(next) == 0 || (settled(next) && now.Sub(q.seen) > settledQueueTTL) {
			delete(s.queues, client)
			dropped++
		}
	}
	s.mu.Unlock()
	s.metrics.QueueTick()

	var firstErr error
	for _, client := range clients {
		changes := pending[client]
		if len(changes) == 0 {
			continue
		}
		clientCtx := s.logger.With().Str("client_id", client).Logger().WithContext(store.WithClient(ctx, client))
		for _, ch := range changes {
			details := map[string]string{
				"doctor":   ch.DoctorName,
				"position": fmt.Sprint(ch.To),
			}
			if _, err := s.notifier.Emit(clientCtx, notification.TypeQueue, changeMessage(ch), details); err != nil {
				zerolog.Ctx(clientCtx).Error().Err(err).Str("doctor", ch.DoctorName).Msg("queue notification not stored")
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	s.logger.Debug().Int("clients", len(clients)).Int("changed", len(pending)).Int("dropped", dropped).Msg("queue tick")
	return firstErr
}

func settled(entries []Entry) bool {
	for _, e := range entries {
		if e.Status != StatusNext {
			return false
		}
	}
	return true
}

func changeMessage(ch Change) string {
	if ch.To == 1 {
		return fmt.Sprintf("You're next! %s will see you shortly", ch.DoctorName)
	}
	return fmt.Sprintf("Queue update: you are now #%d for %s", ch.To, ch.DoctorName)
}

func copyEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
