package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"tiffin-api/internal/models"
	"tiffin-api/internal/services"
	"tiffin-api/pkg/logging"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes order.created events to Kafka.
type Producer struct {
	w   messageWriter
	now func() time.Time
}

// NewProducer creates an asynchronous writer.
// - Hash on the subscription id keeps one subscription's events on one partition.
// - RequireAll waits for the in-sync replicas.
// - Async returns immediately; delivery errors are logged from Completion.
func NewProducer(brokers []string, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logging.Errorf("Kafka delivery of %d order events failed: %v", len(messages), err)
			}
		},
	})
}

func newProducer(w messageWriter) *Producer {
	return &Producer{w: w, now: time.Now}
}

// Close flushes pending messages and releases the writer.
func (p *Producer) Close() error { return p.w.Close() }

// Publish writes one event keyed by its subscription id.
func (p *Producer) Publish(ctx context.Context, event OrderEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.UserSubscriptionID), 10)),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Event)},
		},
	})
}

// OrderCreated publishes the order; failures are logged and never reach the batch.
func (p *Producer) OrderCreated(ctx context.Context, order *models.Order) {
	event := newOrderEvent(order, p.now())
	if err := p.Publish(ctx, event); err != nil {
		logging.Errorf("Failed to publish %s for order %s: %v", event.Event, order.OrderNumber, err)
	}
}

var _ services.OrderListener = (*Producer)(nil)
