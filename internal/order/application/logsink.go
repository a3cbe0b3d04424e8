package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

// LogSink records verified events without forwarding them anywhere. Used
// when no broker is configured.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Publish(_ context.Context, event domain.WebhookEvent, _ json.RawMessage) error {
	s.log.Info("verified event received", "event_id", event.ID, "type", event.EventType)
	return nil
}
