package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusCreated     OrderStatus = "created"
	StatusRiskChecked OrderStatus = "risk_checked"
	StatusApproved    OrderStatus = "approved"
	StatusRejected    OrderStatus = "rejected"
	StatusCaptured    OrderStatus = "captured"
	StatusCancelled   OrderStatus = "cancelled"
	StatusFailed      OrderStatus = "failed"
)

// Order is the ephemeral view held for the duration of one checkout flow.
// The authoritative record lives on the processor side.
type Order struct {
	ID          string
	Amount      string
	Currency    string
	PayerEmail  string
	Description string
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Capture is the result of a completed capture call.
type Capture struct {
	ID         string
	OrderID    string
	Status     string
	PayerEmail string
	Amount     string
	Currency   string
}

// CaptureStatusCompleted is the only capture sub-status treated as success.
const CaptureStatusCompleted = "COMPLETED"

func (c Capture) Completed() bool { return c.Status == CaptureStatusCompleted }

// Currencies accepted for order creation. All two-decimal ISO 4217 codes;
// zero-decimal currencies need different amount scaling and are not supported.
var supportedCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "CAD": {}, "AUD": {}, "CHF": {}, "NZD": {},
}

func SupportedCurrency(code string) bool {
	_, ok := supportedCurrencies[strings.ToUpper(code)]
	return ok
}

// NormalizeAmount validates that s is a positive decimal with at most two
// fractional digits and returns it rescaled to exactly two, the form the
// processor expects on the wire.
func NormalizeAmount(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", NewError(KindInvalidRequest, "amount is not a decimal number")
	}
	if !d.IsPositive() {
		return "", NewError(KindInvalidRequest, "amount must be positive")
	}
	if d.Exponent() < -2 {
		return "", NewError(KindInvalidRequest, "amount has more than two decimal places")
	}
	return d.StringFixed(2), nil
}

func NewOrder(id, amount, currency, payerEmail, description string) Order {
	now := time.Now().UTC()
	return Order{
		ID:          id,
		Amount:      amount,
		Currency:    strings.ToUpper(currency),
		PayerEmail:  payerEmail,
		Description: description,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
