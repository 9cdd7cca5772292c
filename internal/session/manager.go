package session

import (
	"context"
	"sync"
	"time"

	"github.com/tair/stock-ledger/internal/notify"
	"github.com/tair/stock-ledger/internal/storage"
)

// Manager hands out sessions and runs ledger operations one at a time within the
// process. It gives no protection against other processes sharing the store.
type Manager struct {
	mu       sync.Mutex
	store    storage.Store
	notifier notify.Notifier
	identity Identity
	clock    func() time.Time
}

// NewManager creates a manager. identity may be nil.
func NewManager(store storage.Store, notifier notify.Notifier, identity Identity) *Manager {
	return &Manager{
		store:    store,
		notifier: notifier,
		identity: identity,
		clock:    time.Now,
	}
}

// SetClock overrides time.Now for sessions created afterwards
func (m *Manager) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// Acquire takes the operation lock and returns a session for the user resolved
// from ctx. release must be called when the operation is done.
func (m *Manager) Acquire(ctx context.Context) (sess *Session, release func()) {
	m.mu.Lock()
	user := Resolve(ctx, m.identity)
	return New(user, m.store, m.notifier, WithClock(m.clock)), m.mu.Unlock
}

// Store is the store sessions are bound to
func (m *Manager) Store() storage.Store {
	return m.store
}
