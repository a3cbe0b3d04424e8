package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkravets/checkout-orchestrator/pkg/flight"
	"github.com/mkravets/checkout-orchestrator/pkg/logging"
	"github.com/mkravets/checkout-orchestrator/pkg/shutdown"
	"github.com/mkravets/checkout-orchestrator/pkg/tracing"

	"github.com/mkravets/checkout-orchestrator/internal/order/application"
	orderhttp "github.com/mkravets/checkout-orchestrator/internal/order/infrastructure/http"
	orderkafka "github.com/mkravets/checkout-orchestrator/internal/order/infrastructure/kafka"
	"github.com/mkravets/checkout-orchestrator/internal/processor"
	"github.com/mkravets/checkout-orchestrator/internal/risk"
)

func main() {
	log := logging.New()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Configuration
	processorURL := env("PROCESSOR_URL", "https://api-m.sandbox.paypal.com")
	clientID := os.Getenv("PROCESSOR_CLIENT_ID")
	clientSecret := os.Getenv("PROCESSOR_SECRET")
	webhookID := os.Getenv("PROCESSOR_WEBHOOK_ID")
	riskLimit := env("RISK_LIMIT", "100.00")
	httpAddr := env("HTTP_ADDR", ":8080")
	otlpURL := env("OTLP_URL", "http://localhost:4318")
	eventsTopic := env("EVENTS_TOPIC", "payment.events")
	kafkaAddr := os.Getenv("KAFKA_ADDR")
	redisAddr := os.Getenv("REDIS_ADDR")

	tp, err := tracing.Init(ctx, "checkout-orchestrator", otlpURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	// Outbound processor client
	httpc := &http.Client{Timeout: 15 * time.Second}
	tokens := processor.NewTokenSource(log, httpc, processorURL, processor.Credentials{
		ClientID: clientID,
		Secret:   clientSecret,
	})
	client := processor.NewClient(log, httpc, processorURL, tokens)
	verifier := processor.NewWebhookVerifier(client, webhookID)

	// Risk gate
	gate, err := risk.NewAmountThresholdGate(log, riskLimit)
	if err != nil {
		log.Error("bad risk limit", "value", riskLimit, "err", err)
		os.Exit(1)
	}

	// Single-flight guard: shared over Redis when configured, otherwise
	// process-local.
	var guard flight.Guard = flight.NewMemoryGuard()
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()
		guard = flight.NewRedisGuard(rdb, 30*time.Second)
		log.Info("single-flight guard backed by redis", "addr", redisAddr)
	}

	// Verified-event sink
	var sink application.EventSink = application.NewLogSink(log)
	if kafkaAddr != "" {
		writer := orderkafka.NewWriter(strings.Split(kafkaAddr, ","))
		defer func() { _ = writer.Close() }()
		sink = orderkafka.NewSink(log, writer, eventsTopic)
		log.Info("verified events published to kafka", "addr", kafkaAddr, "topic", eventsTopic)
	}

	svc := application.NewService(log, client, gate, guard)
	handler := orderhttp.NewHandler(log, svc, verifier, sink)

	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("orchestrator shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
