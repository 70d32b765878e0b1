package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sanjeevni/portal/internal/platform/store"
)

var (
	ErrFlowNotFound = errors.New("booking flow not found")
	ErrFlowBusy     = errors.New("booking flow is being confirmed")
)

// maxFlowsPerClient bounds the in-progress forms kept for one client; the
// oldest is dropped first.
const maxFlowsPerClient = 16

// Registry keeps in-progress booking flows in memory, per client. Form state
// is never persisted.
type Registry struct {
	mu      sync.Mutex
	flows   map[string]map[string]*Flow
	order   map[string][]string
	catalog *Catalog
	now     func() time.Time
}

func NewRegistry(catalog *Catalog, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		flows:   make(map[string]map[string]*Flow),
		order:   make(map[string][]string),
		catalog: catalog,
		now:     now,
	}
}

func (r *Registry) Create(ctx context.Context) FlowState {
	client := store.ClientFromContext(ctx)
	f := NewFlow(r.catalog, r.now)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flows[client] == nil {
		r.flows[client] = make(map[string]*Flow)
	}
	if ids := r.order[client]; len(ids) >= maxFlowsPerClient {
		delete(r.flows[client], ids[0])
		r.order[client] = ids[1:]
	}
	r.flows[client][f.ID] = f
	r.order[client] = append(r.order[client], f.ID)
	return f.State()
}

// With runs fn on the client's flow id while holding the registry lock.
func (r *Registry) With(ctx context.Context, id string, fn func(f *Flow) error) error {
	client := store.ClientFromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[client][id]
	if !ok {
		return ErrFlowNotFound
	}
	if f.busy {
		return ErrFlowBusy
	}
	return fn(f)
}

// Checkout marks the flow busy and hands out a copy that the caller may use
// without holding the registry lock. Release must follow.
func (r *Registry) Checkout(ctx context.Context, id string) (*Flow, error) {
	var snapshot Flow
	err := r.With(ctx, id, func(f *Flow) error {
		f.busy = true
		snapshot = *f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Release clears the busy mark and, when reset is true, returns the flow to
// its first step.
func (r *Registry) Release(ctx context.Context, id string, reset bool) {
	client := store.ClientFromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[client][id]
	if !ok {
		return
	}
	f.busy = false
	if reset {
		f.Reset()
	}
}
