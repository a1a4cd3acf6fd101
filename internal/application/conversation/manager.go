package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/factura-chat/internal/domain/event"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

// Manager keeps the live conversations, one per session id
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Controller
	factory   Factory
	ttl       time.Duration
	now       func() time.Time
	publisher Publisher
	logger    *zap.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithSessionTTL sets how long an idle session survives; zero disables expiry
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithManagerClock overrides the time source used for expiry
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithManagerPublisher sets the publisher for session lifecycle events
func WithManagerPublisher(p Publisher) ManagerOption {
	return func(m *Manager) {
		m.publisher = p
	}
}

// NewManager creates a session manager
func NewManager(factory Factory, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		sessions:  make(map[string]*Controller),
		factory:   factory,
		now:       time.Now,
		publisher: nopPublisher{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new conversation and probes the billing backend for it
func (m *Manager) Create(ctx context.Context) *Controller {
	id := uuid.NewString()
	c := m.factory(id)
	c.Start(ctx)

	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()

	m.logger.Info("Session created", zap.String("session_id", id), zap.Bool("demo_mode", c.State().DemoMode))
	return c
}

// Get returns the conversation for id
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Send forwards a message to the conversation for id
func (m *Manager) Send(ctx context.Context, id, text string) (State, error) {
	c, err := m.Get(id)
	if err != nil {
		return State{}, err
	}
	return c.Send(ctx, text)
}

// Clear resets the conversation for id
func (m *Manager) Clear(ctx context.Context, id string) (State, error) {
	c, err := m.Get(id)
	if err != nil {
		return State{}, err
	}
	return c.Reset(ctx)
}

// Delete removes the conversation for id
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

// IDs lists the live session ids in sorted order
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Sessions in the middle of a
// message are kept until the next sweep.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []string
	for id, c := range m.sessions {
		if c.Processing() || !c.LastActive().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		expired = append(expired, id)
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.publisher.DispatchAsync(context.WithoutCancel(ctx), event.NewEvent(event.TypeSessionExpired, id, nil))
	}
	if len(expired) > 0 {
		m.logger.Info("Expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}
