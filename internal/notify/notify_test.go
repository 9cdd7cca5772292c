package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Event) error { return f.err }

func TestBusRoutesByKeyMarkerAndAll(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()

	var byKey, byMarker, all recorder
	bus.Subscribe("cart_alice", byKey.handle)
	unsubscribe := bus.Subscribe("last_cart_update", byMarker.handle)
	bus.Subscribe(AllTopics, all.handle)

	require.NoError(t, bus.Notify(ctx, Event{Key: "cart_alice", Marker: "last_cart_update"}))
	require.NoError(t, bus.Notify(ctx, Event{Key: "soldItems"}))

	assert.Len(t, byKey.snapshot(), 1)
	assert.Len(t, byMarker.snapshot(), 1)
	assert.Len(t, all.snapshot(), 2)

	unsubscribe()
	unsubscribe()
	require.NoError(t, bus.Notify(ctx, Event{Key: "cart_alice", Marker: "last_cart_update"}))
	assert.Len(t, byMarker.snapshot(), 1, "unsubscribed handler is not called")
	assert.Len(t, byKey.snapshot(), 2)
}

func TestBusDeliversOnceWhenMarkerEqualsKey(t *testing.T) {
	bus := NewBus()
	var r recorder
	bus.Subscribe("k", r.handle)

	require.NoError(t, bus.Notify(context.Background(), Event{Key: "k", Marker: "k"}))
	assert.Len(t, r.snapshot(), 1)
}

func TestMultiJoinsErrors(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	bus := NewBus()
	var r recorder
	bus.Subscribe(AllTopics, r.handle)

	m := Multi{failingNotifier{errA}, nil, bus, failingNotifier{errB}}
	err := m.Notify(context.Background(), Event{Key: "k"})
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, r.snapshot(), 1, "a failing notifier does not stop the others")

	assert.NoError(t, Multi{Discard{}}.Notify(context.Background(), Event{}))
}

func TestRedisNotifierForwardsRemoteEventsOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	local := NewRedisNotifier(client, "")
	remote := NewRedisNotifier(client, "")
	assert.NotEqual(t, local.Origin(), remote.Origin())

	bus := NewBus()
	var r recorder
	bus.Subscribe(AllTopics, r.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- local.Listen(ctx, bus) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(DefaultRedisChannel)[DefaultRedisChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, local.Notify(ctx, Event{Key: "own"}))
	require.NoError(t, remote.Notify(ctx, Event{Key: "products_alice", User: "alice"}))

	require.Eventually(t, func() bool { return len(r.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := r.snapshot()[0]
	assert.Equal(t, "products_alice", got.Key)
	assert.Equal(t, "alice", got.User)
	assert.Equal(t, remote.Origin(), got.Origin)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
