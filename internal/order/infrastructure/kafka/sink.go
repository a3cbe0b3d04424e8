package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
	"github.com/mkravets/checkout-orchestrator/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Sink publishes verified webhook events for downstream business logic.
// Only trusted events reach this point; the core's job ends at handing them
// over with their provenance headers.
type Sink struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewSink(log *slog.Logger, producer Producer, topic string) *Sink {
	return &Sink{log: log, producer: producer, topic: topic}
}

func (s *Sink) Publish(ctx context.Context, event domain.WebhookEvent, raw json.RawMessage) error {
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "event_id", Value: []byte(event.ID)},
	}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   s.topic,
		Key:     eventKey(event),
		Value:   raw,
		Headers: headers,
	}
	if err := s.producer.WriteMessages(ctx, msg); err != nil {
		s.log.Error("event publish failed", "event_id", event.ID, "type", event.EventType, "err", err)
		return err
	}
	s.log.Info("event published", "event_id", event.ID, "type", event.EventType)
	return nil
}

// eventKey extracts the order id from the resource when present so related
// events share a partition; the event id is the fallback.
func eventKey(event domain.WebhookEvent) []byte {
	var resource struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Resource, &resource); err == nil && resource.ID != "" {
		return []byte(resource.ID)
	}
	return []byte(event.ID)
}
