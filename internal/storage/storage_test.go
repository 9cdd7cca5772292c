package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type item struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

var errUnavailable = errors.New("unavailable")

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, errUnavailable }
func (brokenStore) Set(context.Context, string, string) error         { return errUnavailable }
func (brokenStore) Remove(context.Context, string) error              { return errUnavailable }

// exerciseStore runs the Store contract against s
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", `[1]`))
	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[1]`, v)

	require.NoError(t, s.Set(ctx, "k", ""))
	v, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found, "an empty value is still present")
	assert.Empty(t, v)

	require.NoError(t, s.Remove(ctx, "k"))
	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remove(ctx, "k"), "removing an absent key is not an error")
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Set(ctx, "a", "1"))
	assert.Equal(t, []string{"a", "b"}, s.Keys())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client, "ledger:")
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), ProductsKey("alice"), "[]"))
	stored, err := mr.Get("ledger:products_alice")
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)
}

func TestLoadListToleratesMissingAndMalformedData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	items, err := LoadList[item](ctx, s, "absent")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	for _, raw := range []string{"", "null", "{not json", `{"id":"x"}`} {
		require.NoError(t, s.Set(ctx, "bad", raw))
		items, err = LoadList[item](ctx, s, "bad")
		require.NoError(t, err, raw)
		assert.Empty(t, items, raw)
	}

	_, err = LoadList[item](ctx, brokenStore{}, "k")
	assert.ErrorIs(t, err, errUnavailable)
}

func TestSaveListRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, SaveList[item](ctx, s, "empty", nil))
	raw, _, _ := s.Get(ctx, "empty")
	assert.Equal(t, "[]", raw)

	want := []item{{ID: "a", Qty: 2}, {ID: "b", Qty: 0}}
	require.NoError(t, SaveList(ctx, s, "items", want))
	got, err := LoadList[item](ctx, s, "items")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.ErrorIs(t, SaveList(ctx, brokenStore{}, "items", want), errUnavailable)
}

func TestTracingStoreRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)

	exerciseStore(t, NewTracingStore(NewMemoryStore(), "memory"))

	broken := NewTracingStore(brokenStore{}, "broken")
	_, _, err := broken.Get(context.Background(), "k")
	assert.ErrorIs(t, err, errUnavailable)

	spans := sr.Ended()
	require.NotEmpty(t, spans)
	assert.Equal(t, "store.Get", spans[0].Name())

	last := spans[len(spans)-1]
	assert.Equal(t, "store.Get", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
}
