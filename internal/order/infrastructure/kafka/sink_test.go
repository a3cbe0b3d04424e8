package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

type capturingProducer struct {
	msgs []segkafka.Message
	err  error
}

func (p *capturingProducer) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func TestSinkPublishesRawEventKeyedByResource(t *testing.T) {
	producer := &capturingProducer{}
	sink := NewSink(slog.New(slog.NewTextHandler(io.Discard, nil)), producer, "payment.events")

	raw := json.RawMessage(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"5O190127TN364715T"}}`)
	event := domain.WebhookEvent{
		ID:        "WH-1",
		EventType: "PAYMENT.CAPTURE.COMPLETED",
		Resource:  json.RawMessage(`{"id":"5O190127TN364715T"}`),
	}

	require.NoError(t, sink.Publish(context.Background(), event, raw))
	require.Len(t, producer.msgs, 1)

	msg := producer.msgs[0]
	assert.Equal(t, "payment.events", msg.Topic)
	assert.Equal(t, []byte("5O190127TN364715T"), msg.Key)
	assert.Equal(t, []byte(raw), msg.Value)

	assert.Equal(t, "PAYMENT.CAPTURE.COMPLETED", headerValue(msg.Headers, "event_type"))
	assert.Equal(t, "WH-1", headerValue(msg.Headers, "event_id"))
}

func TestSinkFallsBackToEventIDKey(t *testing.T) {
	producer := &capturingProducer{}
	sink := NewSink(slog.New(slog.NewTextHandler(io.Discard, nil)), producer, "payment.events")

	event := domain.WebhookEvent{ID: "WH-2", EventType: "PAYMENT.CAPTURE.DENIED"}
	require.NoError(t, sink.Publish(context.Background(), event, json.RawMessage(`{}`)))
	assert.Equal(t, []byte("WH-2"), producer.msgs[0].Key)
}

func TestSinkSurfacesProducerError(t *testing.T) {
	producer := &capturingProducer{err: errors.New("broker down")}
	sink := NewSink(slog.New(slog.NewTextHandler(io.Discard, nil)), producer, "payment.events")

	err := sink.Publish(context.Background(), domain.WebhookEvent{ID: "WH-3"}, json.RawMessage(`{}`))
	assert.Error(t, err)
}

func headerValue(headers []segkafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
