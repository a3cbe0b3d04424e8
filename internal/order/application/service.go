package application

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
	"github.com/mkravets/checkout-orchestrator/pkg/flight"
)

// Processor-assigned order ids: opaque tokens, no whitespace or separators
// beyond dash/underscore.
var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Service is the order lifecycle orchestrator. It owns no durable state;
// the processor holds the authoritative order record and the service tracks
// only in-flight request correlation through the guard.
type Service struct {
	log       *slog.Logger
	processor ProcessorClient
	risk      RiskGate
	guard     flight.Guard
}

func NewService(log *slog.Logger, processor ProcessorClient, risk RiskGate, guard flight.Guard) *Service {
	return &Service{log: log, processor: processor, risk: risk, guard: guard}
}

// CreateRequest carries one checkout's create parameters. SessionID scopes
// the single-flight guard; concurrent submissions for the same session are
// rejected, independent sessions never block each other.
type CreateRequest struct {
	Amount      string
	Currency    string
	PayerEmail  string
	Description string
	SessionID   string
}

// CreateOrder opens an order on the processor and runs the risk decision
// before the id is handed back. A denied or unreachable risk gate leaves no
// live order behind: cancellation is attempted either way.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (string, error) {
	amount, err := domain.NormalizeAmount(req.Amount)
	if err != nil {
		return "", err
	}
	if !domain.SupportedCurrency(req.Currency) {
		return "", domain.NewError(domain.KindInvalidRequest, "unsupported currency "+req.Currency)
	}
	if req.SessionID == "" {
		return "", domain.NewError(domain.KindInvalidRequest, "session id required")
	}

	ok, err := s.guard.Acquire(ctx, "create:"+req.SessionID)
	if err != nil {
		return "", domain.NewError(domain.KindNetwork, "single-flight guard unavailable").Wrap(err)
	}
	if !ok {
		return "", domain.NewError(domain.KindAlreadyProcessing, "a create request for this session is already in flight")
	}
	defer s.guard.Release(ctx, "create:"+req.SessionID)

	order := domain.NewOrder("", amount, req.Currency, req.PayerEmail, req.Description)
	orderID, err := s.processor.CreateOrder(ctx, order)
	if err != nil {
		return "", err
	}
	s.log.Info("order created", "order_id", orderID, "amount", amount, "currency", order.Currency)

	return s.AssessAndFinalizeCreation(ctx, orderID, amount)
}

// AssessAndFinalizeCreation runs the risk gate over a just-created order.
// On denial the order is cancelled on the processor; a cancellation failure
// is logged and swallowed, it never masks the risk outcome. An unreachable
// evaluator is treated as a denial, never as an approval.
func (s *Service) AssessAndFinalizeCreation(ctx context.Context, orderID, amount string) (string, error) {
	approved, err := s.risk.Evaluate(ctx, orderID, amount)
	if err != nil {
		s.log.Error("risk evaluation unavailable", "order_id", orderID, "err", err)
		s.cancelBestEffort(ctx, orderID)
		return "", domain.NewError(domain.KindRiskUnavailable, "risk evaluator unreachable").
			WithOrder(orderID).Wrap(err)
	}
	if !approved {
		s.log.Info("order rejected by risk gate", "order_id", orderID, "amount", amount)
		s.cancelBestEffort(ctx, orderID)
		return "", domain.NewError(domain.KindRiskRejected, "risk rejected").WithOrder(orderID)
	}
	return orderID, nil
}

func (s *Service) cancelBestEffort(ctx context.Context, orderID string) {
	if err := s.processor.CancelOrder(ctx, orderID); err != nil {
		s.log.Error("order cancellation failed", "order_id", orderID, "err", err)
	}
}

// CaptureOrder collects funds for an approved order. At most one capture
// attempt per order id is in flight at a time; a concurrent second attempt
// fails immediately with a retryable already-processing condition.
func (s *Service) CaptureOrder(ctx context.Context, orderID string) (domain.Capture, error) {
	if !orderIDPattern.MatchString(orderID) {
		return domain.Capture{}, domain.NewError(domain.KindInvalidRequest, "malformed order id")
	}

	ok, err := s.guard.Acquire(ctx, "capture:"+orderID)
	if err != nil {
		return domain.Capture{}, domain.NewError(domain.KindNetwork, "single-flight guard unavailable").Wrap(err)
	}
	if !ok {
		return domain.Capture{}, domain.NewError(domain.KindAlreadyProcessing, "a capture for this order is already in flight").
			WithOrder(orderID)
	}
	defer s.guard.Release(ctx, "capture:"+orderID)

	capture, err := s.processor.CaptureOrder(ctx, orderID)
	if err != nil {
		return domain.Capture{}, err
	}
	s.log.Info("order captured", "order_id", orderID, "capture_id", capture.ID, "amount", capture.Amount)
	return capture, nil
}
