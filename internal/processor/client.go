package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

// Client drives the processor's checkout REST API. Every outbound failure is
// translated into a domain error kind before it leaves this package.
type Client struct {
	log     *slog.Logger
	httpc   *http.Client
	baseURL string
	tokens  *TokenSource
	tracer  trace.Tracer
}

func NewClient(log *slog.Logger, httpc *http.Client, baseURL string, tokens *TokenSource) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		log:     log,
		httpc:   httpc,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		tracer:  otel.Tracer("processor-client"),
	}
}

type amountBody struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitBody struct {
	Amount      amountBody `json:"amount"`
	Description string     `json:"description,omitempty"`
}

type payerBody struct {
	EmailAddress string `json:"email_address,omitempty"`
}

type createOrderBody struct {
	Intent        string             `json:"intent"`
	PurchaseUnits []purchaseUnitBody `json:"purchase_units"`
	Payer         *payerBody         `json:"payer,omitempty"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type captureRecord struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Amount amountBody `json:"amount"`
}

type captureResponse struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Payer         payerBody `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []captureRecord `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type apiIssue struct {
	Issue string `json:"issue"`
}

type apiError struct {
	Name    string     `json:"name"`
	Details []apiIssue `json:"details"`
}

// CreateOrder opens a capture-intent order and returns the processor id.
func (c *Client) CreateOrder(ctx context.Context, o domain.Order) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ProcessorCreateOrder")
	defer span.End()

	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitBody{{
			Amount:      amountBody{CurrencyCode: o.Currency, Value: o.Amount},
			Description: o.Description,
		}},
	}
	if o.PayerEmail != "" {
		body.Payer = &payerBody{EmailAddress: o.PayerEmail}
	}

	resp, err := c.post(ctx, "/v2/checkout/orders", body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		c.log.Warn("order create rejected", "status", resp.StatusCode)
		return "", domain.NewError(domain.KindCreateRejected, "processor rejected order creation").
			WithUpstreamStatus(resp.StatusCode)
	}

	var created createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", domain.NewError(domain.KindCreateRejected, "malformed order create response").Wrap(err)
	}
	if created.ID == "" {
		return "", domain.NewError(domain.KindCreateRejected, "order create response missing id")
	}
	return created.ID, nil
}

// CaptureOrder collects funds against an approved order. Only the first
// purchase unit's first capture record matters; anything other than a
// COMPLETED record is a failure.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (domain.Capture, error) {
	ctx, span := c.tracer.Start(ctx, "ProcessorCaptureOrder")
	defer span.End()

	resp, err := c.post(ctx, "/v2/checkout/orders/"+orderID+"/capture", struct{}{})
	if err != nil {
		return domain.Capture{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		for _, d := range apiErr.Details {
			if d.Issue == "ORDER_ALREADY_CAPTURED" {
				return domain.Capture{}, domain.NewError(domain.KindAlreadyCaptured, "order was already captured").
					WithOrder(orderID).WithUpstreamStatus(resp.StatusCode)
			}
		}
		return domain.Capture{}, domain.NewError(domain.KindCaptureIncomplete, "processor declined capture").
			WithOrder(orderID).WithUpstreamStatus(resp.StatusCode)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return domain.Capture{}, domain.NewError(domain.KindCaptureIncomplete, "processor capture call failed").
			WithOrder(orderID).WithUpstreamStatus(resp.StatusCode)
	}

	var captured captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&captured); err != nil {
		return domain.Capture{}, domain.NewError(domain.KindCaptureIncomplete, "malformed capture response").
			WithOrder(orderID).Wrap(err)
	}
	if len(captured.PurchaseUnits) == 0 || len(captured.PurchaseUnits[0].Payments.Captures) == 0 {
		return domain.Capture{}, domain.NewError(domain.KindCaptureIncomplete, "capture response carries no capture record").
			WithOrder(orderID)
	}

	rec := captured.PurchaseUnits[0].Payments.Captures[0]
	capture := domain.Capture{
		ID:         rec.ID,
		OrderID:    orderID,
		Status:     rec.Status,
		PayerEmail: captured.Payer.EmailAddress,
		Amount:     rec.Amount.Value,
		Currency:   rec.Amount.CurrencyCode,
	}
	if !capture.Completed() {
		return domain.Capture{}, domain.NewError(domain.KindCaptureIncomplete, "capture status is "+rec.Status).
			WithOrder(orderID)
	}
	return capture, nil
}

// CancelOrder patches the order status to CANCELLED. Used as best-effort
// cleanup after a risk denial.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	ctx, span := c.tracer.Start(ctx, "ProcessorCancelOrder")
	defer span.End()

	patch := []map[string]string{{
		"op":    "replace",
		"path":  "/status",
		"value": "CANCELLED",
	}}
	resp, err := c.do(ctx, http.MethodPatch, "/v2/checkout/orders/"+orderID, patch)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return domain.NewError(domain.KindCreateRejected, "processor rejected order cancellation").
			WithOrder(orderID).WithUpstreamStatus(resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewError(domain.KindNetwork, "encode request body").Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewError(domain.KindNetwork, "build processor request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, transportError(err, method+" "+path)
	}
	return resp, nil
}

// transportError keeps timeouts distinguishable from other network failures.
func transportError(err error, op string) *domain.Error {
	kind := domain.KindNetwork
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = domain.KindTimeout
	}
	return domain.NewError(kind, "processor unreachable: "+op).Wrap(err)
}
