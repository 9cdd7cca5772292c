package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/notify"
	"github.com/tair/stock-ledger/pkg/logger"
)

// Publisher wraps Kafka producer
type Publisher struct {
	producer sarama.SyncProducer
	origin   string
	now      func() time.Time
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer) *Publisher {
	return &Publisher{
		producer: producer,
		origin:   uuid.New().String(),
		now:      time.Now,
	}
}

// Origin is stamped on every change event so a consumer can skip its own
func (p *Publisher) Origin() string {
	return p.origin
}

func newEventID() string {
	return fmt.Sprintf("evt_%s", uuid.New().String())
}

// Notify publishes a ledger change. It implements notify.Notifier.
func (p *Publisher) Notify(ctx context.Context, event notify.Event) error {
	origin := event.Origin
	if origin == "" {
		origin = p.origin
	}
	msg := LedgerChangedEvent{
		EventID:   newEventID(),
		EventType: EventTypeLedgerChanged,
		Key:       event.Key,
		User:      event.User,
		Marker:    event.Marker,
		Origin:    origin,
		ChangedAt: event.At,
		Timestamp: p.now(),
	}
	return p.publish(ctx, TopicLedgerChanges, EventTypeLedgerChanged, msg.EventID, event.User, msg,
		attribute.String("ledger.key", event.Key),
		attribute.String("ledger.user", event.User),
	)
}

// SaleCommitted publishes a committed checkout
func (p *Publisher) SaleCommitted(ctx context.Context, user, invoice string, sales []domain.SoldItem) error {
	msg := SaleCommittedEvent{
		EventID:   newEventID(),
		EventType: EventTypeSaleCommitted,
		User:      user,
		Invoice:   invoice,
		Lines:     make([]SaleLine, 0, len(sales)),
		Timestamp: p.now(),
	}
	for _, s := range sales {
		msg.Lines = append(msg.Lines, SaleLine{
			SaleID:      s.ID,
			ProductID:   s.ProductID,
			ProductName: s.ProductName,
			Quantity:    s.Units(),
		})
		msg.Units += s.Units()
	}
	return p.publish(ctx, TopicSalesCommitted, EventTypeSaleCommitted, msg.EventID, invoice, msg,
		attribute.String("sale.invoice", invoice),
		attribute.Int("sale.units", msg.Units),
	)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, eventID, key string, event any, attrs ...attribute.KeyValue) error {
	// Start tracing span
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish."+eventType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", eventType),
			attribute.String("event.id", eventID),
		),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	eventBytes, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Inject trace context into Kafka headers
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(eventType)},
		{Key: []byte("event_id"), Value: []byte(eventID)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(eventBytes),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		logger.Error(ctx).
			Err(err).
			Str("topic", topic).
			Str("event_type", eventType).
			Msg("Failed to publish event")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "Event published successfully")

	logger.Debug(ctx).
		Str("event_id", eventID).
		Str("event_type", eventType).
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Event published")
	return nil
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
