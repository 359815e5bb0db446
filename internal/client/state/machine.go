// Package state owns the client-side product collection and its lifecycle.
// Operations never return errors: failures become the Error field of the state.
package state

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/abgdnv/productdesk/internal/client/products"
)

const (
	MsgFetchFailed  = "Failed to load products. Please try again."
	MsgCreateFailed = "Failed to create product. Please try again."
	MsgDeleteFailed = "Failed to delete product. Please try again."
)

// Status tells whether an operation is outstanding.
type Status int

const (
	Idle Status = iota
	Loading
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	default:
		return "unknown"
	}
}

// CreateMode selects how Create adds a product.
type CreateMode int

const (
	// CreateServer appends the product returned by the server.
	CreateServer CreateMode = iota
	// CreateOptimistic appends a provisional product without a network call.
	CreateOptimistic
)

// State is a snapshot of the collection. An empty Error means no error.
type State struct {
	Items  []products.Product
	Status Status
	Error  string
}

// Repository is the remote collection the machine operates on.
type Repository interface {
	List(ctx context.Context) ([]products.Product, error)
	Create(ctx context.Context, name string, price float64) (*products.Product, error)
	Remove(ctx context.Context, id int64) error
}

// Machine applies operation results to the collection state and notifies subscribers.
// Overlapping operations are not coordinated: the last one to settle wins.
// Subscribers receive snapshots in the order the transitions were applied. They may
// read State() but must not start an operation synchronously from the callback.
type Machine struct {
	repo       Repository
	logger     *slog.Logger
	createMode CreateMode
	now        func() time.Time

	// delivery orders notifications by seq; delivered is the last seq handed out.
	notifyMu  sync.Mutex
	delivery  *sync.Cond
	delivered uint64

	mu          sync.Mutex
	seq         uint64
	state       State
	subscribers map[int]func(State)
	nextSubID   int
}

type Option func(*Machine)

func WithCreateMode(mode CreateMode) Option {
	return func(m *Machine) {
		m.createMode = mode
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger.With("component", "state_machine")
	}
}

// WithClock replaces the clock used for provisional ids.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

func NewMachine(repo Repository, opts ...Option) *Machine {
	m := &Machine{
		repo:        repo,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
		state:       State{Items: []products.Product{}},
		subscribers: make(map[int]func(State)),
	}
	m.delivery = sync.NewCond(&m.notifyMu)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Subscribe registers fn to receive a snapshot after every transition.
// The returned function removes the subscription.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Fetch replaces the items with the remote collection.
func (m *Machine) Fetch(ctx context.Context) {
	m.startLoading()
	items, err := m.repo.List(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "Fetch failed", "error", err)
		m.update(func(s *State) {
			s.Status = Idle
			s.Error = MsgFetchFailed
		})
		return
	}
	m.update(func(s *State) {
		s.Status = Idle
		s.Items = slices.Clone(items)
	})
}

// Create adds a product. In server mode the server representation is appended
// once confirmed; in optimistic mode a valid provisional product is appended at once.
func (m *Machine) Create(ctx context.Context, name string, price float64) {
	if m.createMode == CreateOptimistic {
		if err := products.ValidateCreate(name, price); err != nil {
			m.logger.WarnContext(ctx, "Create rejected", "error", err)
			m.update(func(s *State) {
				s.Error = MsgCreateFailed
			})
			return
		}
		m.Add(products.Product{ID: m.now().UnixMilli(), Name: name, Price: products.Price(price)})
		return
	}

	m.startLoading()
	created, err := m.repo.Create(ctx, name, price)
	if err != nil {
		m.logger.WarnContext(ctx, "Create failed", "error", err)
		m.update(func(s *State) {
			s.Status = Idle
			s.Error = MsgCreateFailed
		})
		return
	}
	m.update(func(s *State) {
		s.Status = Idle
		s.Items = append(s.Items, *created)
	})
}

// Add appends p to the items without contacting the server.
func (m *Machine) Add(p products.Product) {
	m.update(func(s *State) {
		s.Items = append(s.Items, p)
	})
}

// Delete removes the product from the server and then from the items.
func (m *Machine) Delete(ctx context.Context, id int64) {
	m.startLoading()
	if err := m.repo.Remove(ctx, id); err != nil {
		m.logger.WarnContext(ctx, "Delete failed", "id", id, "error", err)
		m.update(func(s *State) {
			s.Status = Idle
			s.Error = MsgDeleteFailed
		})
		return
	}
	m.update(func(s *State) {
		s.Status = Idle
		s.Items = slices.DeleteFunc(s.Items, func(p products.Product) bool {
			return p.ID == id
		})
	})
}

// ClearError dismisses the current error.
func (m *Machine) ClearError() {
	m.update(func(s *State) {
		s.Error = ""
	})
}

func (m *Machine) startLoading() {
	m.update(func(s *State) {
		s.Status = Loading
		s.Error = ""
	})
}

// update applies fn under the lock and notifies subscribers outside of it,
// in the order the updates were applied.
func (m *Machine) update(fn func(s *State)) {
	m.mu.Lock()
	// items are copied so snapshots handed out earlier never observe the change
	m.state.Items = slices.Clone(m.state.Items)
	fn(&m.state)
	if m.state.Items == nil {
		m.state.Items = []products.Product{}
	}
	snap := m.snapshot()
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	for m.delivered != seq-1 {
		m.delivery.Wait()
	}
	for _, notify := range subs {
		s := snap
		s.Items = slices.Clone(snap.Items)
		notify(s)
	}
	m.delivered = seq
	m.delivery.Broadcast()
}

func (m *Machine) snapshot() State {
	s := m.state
	s.Items = slices.Clone(m.state.Items)
	if s.Items == nil {
		s.Items = []products.Product{}
	}
	return s
}
