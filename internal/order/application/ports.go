package application

import (
	"context"
	"encoding/json"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

// ProcessorClient is the outbound surface of the payment processor the
// orchestrator drives.
type ProcessorClient interface {
	CreateOrder(ctx context.Context, o domain.Order) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (domain.Capture, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// RiskGate decides per order whether capture may proceed. Decisions are
// never cached; every order gets a fresh evaluation.
type RiskGate interface {
	Evaluate(ctx context.Context, orderID, amount string) (bool, error)
}

// WebhookVerifier decides whether an asynchronous processor event is
// trusted.
type WebhookVerifier interface {
	Verify(ctx context.Context, meta domain.TransmissionMeta, event json.RawMessage) (bool, error)
}

// EventSink receives verified webhook events for downstream consumption.
type EventSink interface {
	Publish(ctx context.Context, event domain.WebhookEvent, raw json.RawMessage) error
}
