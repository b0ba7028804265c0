package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"forest-machine-map/pkg/listview"
	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/markerstream"
	"forest-machine-map/pkg/scene"
)

// ErrSessionNotFound is returned for an id the store does not hold.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// Store owns the open sessions.
type Store struct {
	registry  *machines.Registry
	ttl       time.Duration
	focusZoom int
	now       func() time.Time
	hooks     Hooks
	bus       *markerstream.Bus
	log       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the idle timeout used by Sweep.
func WithTTL(ttl time.Duration) Option {
	return func(st *Store) {
		if ttl > 0 {
			st.ttl = ttl
		}
	}
}

// WithFocusZoom sets the zoom used when a row is activated.
func WithFocusZoom(zoom int) Option {
	return func(st *Store) { st.focusZoom = zoom }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithHooks adds observers of view activity.
func WithHooks(hooks ...Hook) Option {
	return func(st *Store) { st.hooks = append(st.hooks, hooks...) }
}

// WithBus publishes every changed snapshot on bus.
func WithBus(bus *markerstream.Bus) Option {
	return func(st *Store) { st.bus = bus }
}

// WithLogger sets the store's logger.
func WithLogger(log *zap.Logger) Option {
	return func(st *Store) {
		if log != nil {
			st.log = log
		}
	}
}

// NewStore returns an empty store over registry.
func NewStore(registry *machines.Registry, opts ...Option) *Store {
	st := &Store{
		registry:  registry,
		ttl:       DefaultTTL,
		focusZoom: listview.DefaultFocusZoom,
		now:       time.Now,
		log:       zap.NewNop(),
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Create opens a session showing every machine.
func (st *Store) Create() *Session {
	now := st.now()
	rec := scene.NewRecorder()
	s := &Session{
		id:       uuid.NewString(),
		created:  now,
		lastSeen: now,
		recorder: rec,
		store:    st,
	}
	s.view = listview.New(st.registry, rec, rec, listview.WithFocusZoom(st.focusZoom))

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()

	st.hooks.SessionOpened(s.id)
	st.log.Debug("session opened", zap.String("session", s.id))
	s.SetFilter(machines.AnyStatus)
	return s
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes the session with id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	st.closed(id)
	st.log.Debug("session closed", zap.String("session", id))
	return nil
}

// closed ends the streams of a removed session and notifies the hooks.
func (st *Store) closed(id string) {
	if st.bus != nil {
		st.bus.End(id)
	}
	st.hooks.SessionClosed(id)
}

// Len is the number of open sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// IDs lists the open sessions, sorted.
func (st *Store) IDs() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were closed.
func (st *Store) Sweep(now time.Time) int {
	st.mu.Lock()
	var stale []string
	for id, s := range st.sessions {
		if s.expired(now, st.ttl) {
			stale = append(stale, id)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, id := range stale {
		st.closed(id)
	}
	if len(stale) > 0 {
		st.log.Info("expired sessions swept", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps every interval until ctx ends.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(st.now())
		}
	}
}
