package intergration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
	orderkafka "github.com/mkravets/checkout-orchestrator/internal/order/infrastructure/kafka"
	"github.com/mkravets/checkout-orchestrator/pkg/flight"
)

func TestGuardAndSinkAgainstRealBackends(t *testing.T) {
	if testing.Short() {
		t.Skip("integration environment needs docker")
	}

	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { env.Teardown(context.Background()) })

	t.Run("redis guard single flight", func(t *testing.T) {
		rdb := goredis.NewClient(&goredis.Options{
			Addr: strings.TrimPrefix(env.RedisAddr, "redis://"),
		})
		t.Cleanup(func() { _ = rdb.Close() })

		guard := flight.NewRedisGuard(rdb, 30*time.Second)

		ok, err := guard.Acquire(ctx, "capture:ord-1")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = guard.Acquire(ctx, "capture:ord-1")
		require.NoError(t, err)
		assert.False(t, ok, "duplicate claim must lose")

		guard.Release(ctx, "capture:ord-1")
		ok, err = guard.Acquire(ctx, "capture:ord-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("kafka sink round trip", func(t *testing.T) {
		const topic = "payment.events.it"

		writer := orderkafka.NewWriter(env.KAddr)
		writer.AllowAutoTopicCreation = true
		t.Cleanup(func() { _ = writer.Close() })

		sink := orderkafka.NewSink(slog.New(slog.NewTextHandler(io.Discard, nil)), writer, topic)

		raw := json.RawMessage(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"ord-77"}}`)
		event := domain.WebhookEvent{
			ID:        "WH-1",
			EventType: "PAYMENT.CAPTURE.COMPLETED",
			Resource:  json.RawMessage(`{"id":"ord-77"}`),
		}
		require.NoError(t, sink.Publish(ctx, event, raw))

		reader := segkafka.NewReader(segkafka.ReaderConfig{
			Brokers: env.KAddr,
			Topic:   topic,
			GroupID: "it-consumer",
		})
		t.Cleanup(func() { _ = reader.Close() })

		readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		msg, err := reader.ReadMessage(readCtx)
		require.NoError(t, err)

		assert.Equal(t, []byte("ord-77"), msg.Key)
		assert.JSONEq(t, string(raw), string(msg.Value))
	})
}
