package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkravets/checkout-orchestrator/internal/order/application"
	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

// SessionHeader scopes the create single-flight guard to one checkout
// session. Requests without it get a per-request id, which disables
// duplicate suppression for that call.
const SessionHeader = "Checkout-Session-Id"

const maxBodyBytes = 1 << 20

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	verifier application.WebhookVerifier
	sink     application.EventSink
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, verifier application.WebhookVerifier, sink application.EventSink) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		sink:     sink,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tracer:   otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/orders", h.createOrder)
	r.Post("/orders/{id}/capture", h.captureOrder)
	r.Post("/webhooks/processor", h.ingestWebhook)

	return r
}

type createOrderReq struct {
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency" validate:"required,len=3,alpha"`
	Email       string `json:"email" validate:"omitempty,email"`
	Description string `json:"description" validate:"omitempty,max=127"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeFailure(w, domain.NewError(domain.KindInvalidRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeFailure(w, domain.NewError(domain.KindInvalidRequest, validationMessage(err)))
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	orderID, err := h.service.CreateOrder(ctx, application.CreateRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		PayerEmail:  req.Email,
		Description: req.Description,
		SessionID:   sessionID,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"order_id": orderID,
	})
}

func (h *Handler) captureOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CaptureOrder")
	defer span.End()

	capture, err := h.service.CaptureOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	resp := map[string]any{
		"success":    true,
		"order_id":   capture.OrderID,
		"capture_id": capture.ID,
		"status":     capture.Status,
		"amount":     capture.Amount,
		"currency":   capture.Currency,
	}
	if capture.PayerEmail != "" {
		resp["payer_email"] = capture.PayerEmail
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ingestWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "IngestWebhook")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeFailure(w, domain.NewError(domain.KindInvalidRequest, "unreadable webhook body"))
		return
	}

	meta := domain.TransmissionMeta{
		AuthAlgo:         r.Header.Get("Paypal-Auth-Algo"),
		CertURL:          r.Header.Get("Paypal-Cert-Url"),
		TransmissionID:   r.Header.Get("Paypal-Transmission-Id"),
		TransmissionTime: r.Header.Get("Paypal-Transmission-Time"),
		TransmissionSig:  r.Header.Get("Paypal-Transmission-Sig"),
	}

	trusted, err := h.verifier.Verify(ctx, meta, body)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if !trusted {
		h.log.Warn("webhook discarded", "transmission_id", meta.TransmissionID)
		h.writeFailure(w, domain.NewError(domain.KindVerifyRejected, "webhook signature verification failed"))
		return
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.writeFailure(w, domain.NewError(domain.KindInvalidRequest, "malformed webhook event"))
		return
	}
	if err := h.sink.Publish(ctx, event, body); err != nil {
		h.log.Error("event dispatch failed", "event_id", event.ID, "err", err)
		h.writeFailure(w, domain.NewError(domain.KindNetwork, "event dispatch failed").Wrap(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "event_id": event.ID})
}

// writeFailure renders the {success:false, error} shape; unclassified errors
// never leak their text to the caller.
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	kind := domain.ErrKind(err)
	message := "internal error"
	status := http.StatusInternalServerError

	var ce *domain.Error
	if errors.As(err, &ce) {
		message = ce.Message
		status = domain.HTTPStatus(ce.Kind)
		if ce.Kind == domain.KindRiskRejected {
			message = "risk rejected"
		}
	} else {
		h.log.Error("unclassified failure", "err", err)
	}

	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"kind":    string(kind),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "invalid field " + verrs[0].Field()
	}
	return "invalid request"
}
