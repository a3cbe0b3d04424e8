package risk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdGateDeterministic(t *testing.T) {
	gate, err := NewAmountThresholdGate(slog.New(slog.NewTextHandler(io.Discard, nil)), "100.00")
	require.NoError(t, err)

	// Everything at or below the limit approves, every time.
	for _, amount := range []string{"0.01", "10.00", "99.99", "100.00"} {
		for i := 0; i < 5; i++ {
			approved, err := gate.Evaluate(context.Background(), "ord-1", amount)
			require.NoError(t, err)
			assert.True(t, approved, "amount %s", amount)
		}
	}

	for _, amount := range []string{"100.01", "500.00"} {
		approved, err := gate.Evaluate(context.Background(), "ord-1", amount)
		require.NoError(t, err)
		assert.False(t, approved, "amount %s", amount)
	}
}

func TestThresholdGateBadInputs(t *testing.T) {
	_, err := NewAmountThresholdGate(slog.New(slog.NewTextHandler(io.Discard, nil)), "lots")
	assert.Error(t, err)

	gate, err := NewAmountThresholdGate(slog.New(slog.NewTextHandler(io.Discard, nil)), "100.00")
	require.NoError(t, err)
	_, err = gate.Evaluate(context.Background(), "ord-1", "not-a-number")
	assert.Error(t, err)
}

func ExampleAmountThresholdGate() {
	gate, _ := NewAmountThresholdGate(slog.New(slog.NewTextHandler(io.Discard, nil)), "100.00")
	approved, _ := gate.Evaluate(context.Background(), "ord-1", "10.00")
	fmt.Println(approved)
	// Output: true
}
