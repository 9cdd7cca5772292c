package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/stock-ledger/internal/notify"
	"github.com/tair/stock-ledger/internal/storage"
)

var fixedNow = time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC)

type readOnlyStore struct {
	*storage.MemoryStore
}

func (readOnlyStore) Set(context.Context, string, string) error {
	return errors.New("read only")
}

func TestNewDefaults(t *testing.T) {
	s := New("", storage.NewMemoryStore(), nil)
	assert.Equal(t, DefaultUser, s.User)
	assert.IsType(t, notify.Discard{}, s.Notifier)
	assert.Equal(t, "products_default", s.ProductsKey())
	assert.Equal(t, "cart_default", s.CartKey())

	s = New("bob", storage.NewMemoryStore(), nil, WithClock(func() time.Time { return fixedNow }))
	assert.Equal(t, fixedNow, s.Now())
	assert.Equal(t, "2024-02-29", s.Today().String())

	tokyo := time.FixedZone("JST", 9*60*60)
	s = New("bob", storage.NewMemoryStore(), nil, WithClock(func() time.Time { return fixedNow.In(tokyo) }))
	assert.Equal(t, "2024-02-29", s.Today().String())
}

func TestTouchStampsMarkerAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	bus := notify.NewBus()

	var events []notify.Event
	bus.Subscribe(storage.LastCartUpdateKey, func(_ context.Context, e notify.Event) {
		events = append(events, e)
	})

	s := New("alice", store, bus, WithClock(func() time.Time { return fixedNow }))
	s.Touch(ctx, s.CartKey(), storage.LastCartUpdateKey)

	stamp, found, err := store.Get(ctx, storage.LastCartUpdateKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, strconv.FormatInt(fixedNow.UnixMilli(), 10), stamp)

	require.Len(t, events, 1)
	assert.Equal(t, notify.Event{Key: "cart_alice", User: "alice", Marker: storage.LastCartUpdateKey, At: fixedNow}, events[0])
}

func TestTouchNotifiesWhenMarkerWriteFails(t *testing.T) {
	bus := notify.NewBus()
	calls := 0
	bus.Subscribe(notify.AllTopics, func(context.Context, notify.Event) { calls++ })

	s := New("alice", readOnlyStore{storage.NewMemoryStore()}, bus)
	s.Touch(context.Background(), s.ProductsKey(), storage.LastProductsUpdateKey)
	assert.Equal(t, 1, calls)
}

func TestIdentityChain(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.CurrentUserKey, "  shop  "))

	chain := FirstOf{ContextIdentity{}, nil, StoreIdentity{Store: store}, StaticIdentity("fallback")}

	assert.Equal(t, "carol", Resolve(ContextWithUser(ctx, "carol"), chain))
	assert.Equal(t, "shop", Resolve(ctx, chain))

	require.NoError(t, store.Set(ctx, storage.CurrentUserKey, "   "))
	assert.Equal(t, "fallback", Resolve(ctx, chain))

	assert.Equal(t, DefaultUser, Resolve(ctx, FirstOf{ContextIdentity{}, StaticIdentity("")}))
	assert.Equal(t, DefaultUser, Resolve(ctx, nil))
	assert.Equal(t, DefaultUser, Resolve(ContextWithUser(ctx, ""), ContextIdentity{}))
}

func TestManagerSerializesOperations(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil, ContextIdentity{})
	m.SetClock(func() time.Time { return fixedNow })

	first, release := m.Acquire(ContextWithUser(context.Background(), "alice"))
	assert.Equal(t, "alice", first.User)
	assert.Equal(t, fixedNow, first.Now())
	assert.Same(t, m.Store(), first.Store)

	acquired := make(chan *Session)
	go func() {
		sess, rel := m.Acquire(context.Background())
		defer rel()
		acquired <- sess
	}()

	select {
	case <-acquired:
		t.Fatal("second operation ran while the first held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case sess := <-acquired:
		assert.Equal(t, DefaultUser, sess.User)
	case <-time.After(2 * time.Second):
		t.Fatal("second operation never ran")
	}
}

func TestManagerSetClockWhileOperating(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil, nil)
	later := fixedNow.Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, release := m.Acquire(context.Background())
			defer release()
			_ = sess.Now()
		}()
	}
	m.SetClock(func() time.Time { return fixedNow })
	m.SetClock(func() time.Time { return later })
	wg.Wait()

	sess, release := m.Acquire(context.Background())
	defer release()
	assert.Equal(t, later, sess.Now())
}
