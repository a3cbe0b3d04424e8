package risk

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

// AmountThresholdGate is the reference risk policy: amounts at or below the
// limit are approved, everything above is denied. It exists to exercise the
// pipeline; real risk engines plug in through the same Evaluate contract on
// the orchestrator.
type AmountThresholdGate struct {
	log   *slog.Logger
	limit decimal.Decimal
}

func NewAmountThresholdGate(log *slog.Logger, limit string) (*AmountThresholdGate, error) {
	d, err := decimal.NewFromString(limit)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidRequest, "risk threshold is not a decimal number").Wrap(err)
	}
	return &AmountThresholdGate{log: log, limit: d}, nil
}

func (g *AmountThresholdGate) Evaluate(_ context.Context, orderID, amount string) (bool, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return false, domain.NewError(domain.KindRiskUnavailable, "unparsable amount handed to risk gate").
			WithOrder(orderID).Wrap(err)
	}
	approved := d.LessThanOrEqual(g.limit)
	g.log.Info("risk decision", "order_id", orderID, "amount", amount, "approved", approved)
	return approved, nil
}
