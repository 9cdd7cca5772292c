package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ledger-store")

// TracingStore wraps a Store with a span per call
type TracingStore struct {
	next    Store
	backend string
}

// NewTracingStore decorates next; backend names the store in span attributes
func NewTracingStore(next Store, backend string) *TracingStore {
	return &TracingStore{next: next, backend: backend}
}

func (s *TracingStore) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "store."+op,
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.String("store.key", key),
		),
	)
}

func (s *TracingStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.start(ctx, "Get", key)
	defer span.End()

	v, found, err := s.next.Get(ctx, key)
	if err != nil {
		addErrorToSpan(span, err)
		return "", false, err
	}

	span.SetAttributes(
		attribute.Bool("store.found", found),
		attribute.Int("store.value_bytes", len(v)),
	)
	return v, found, nil
}

func (s *TracingStore) Set(ctx context.Context, key, value string) error {
	ctx, span := s.start(ctx, "Set", key)
	defer span.End()

	span.SetAttributes(attribute.Int("store.value_bytes", len(value)))
	if err := s.next.Set(ctx, key, value); err != nil {
		addErrorToSpan(span, err)
		return err
	}
	return nil
}

func (s *TracingStore) Remove(ctx context.Context, key string) error {
	ctx, span := s.start(ctx, "Remove", key)
	defer span.End()

	if err := s.next.Remove(ctx, key); err != nil {
		addErrorToSpan(span, err)
		return err
	}
	return nil
}

func addErrorToSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
