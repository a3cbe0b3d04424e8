package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// WithSignals cancels the returned context on SIGINT or SIGTERM.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
