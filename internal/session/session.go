package session

import (
	"context"
	"strconv"
	"time"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/notify"
	"github.com/tair/stock-ledger/internal/storage"
	"github.com/tair/stock-ledger/pkg/logger"
)

// DefaultUser is the identity used when no user is logged in
const DefaultUser = "default"

// Session carries everything a ledger operation needs: whose namespace it works
// in, where data lives, who to tell about changes and what time it is.
type Session struct {
	User     string
	Store    storage.Store
	Notifier notify.Notifier
	clock    func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// New creates a session for user. An empty user falls back to DefaultUser and a
// nil notifier discards events.
func New(user string, store storage.Store, notifier notify.Notifier, opts ...Option) *Session {
	if user == "" {
		user = DefaultUser
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	s := &Session{
		User:     user,
		Store:    store,
		Notifier: notifier,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the session clock
func (s *Session) Now() time.Time {
	return s.clock()
}

// Today is the session clock's calendar day in UTC, the zone sale dates are
// stored and compared in
func (s *Session) Today() domain.Date {
	return domain.NewDate(s.clock())
}

// ProductsKey is this user's products key
func (s *Session) ProductsKey() string {
	return storage.ProductsKey(s.User)
}

// CartKey is this user's cart key
func (s *Session) CartKey() string {
	return storage.CartKey(s.User)
}

// Touch records a change of key: it stamps marker with the current time in
// milliseconds and notifies subscribers. Both steps are best effort; a failure is
// logged and does not undo the change that was already written.
func (s *Session) Touch(ctx context.Context, key, marker string) {
	at := s.clock()
	if marker != "" {
		stamp := strconv.FormatInt(at.UnixMilli(), 10)
		if err := s.Store.Set(ctx, marker, stamp); err != nil {
			logger.Warn(ctx).Err(err).Str("marker", marker).Msg("Failed to write change marker")
		}
	}

	event := notify.Event{Key: key, User: s.User, Marker: marker, At: at}
	if err := s.Notifier.Notify(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).Str("key", key).Msg("Failed to publish change event")
	}
}
