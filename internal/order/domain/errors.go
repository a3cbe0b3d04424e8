package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable classification of a core failure. Transport
// and provider-side errors are translated into one of these at the point of
// the outbound call; raw transport errors never cross the core boundary.
type Kind string

const (
	// Authentication against the processor's token endpoint.
	KindMissingCredentials Kind = "missing_credentials"
	KindAuthRejected       Kind = "auth_rejected"

	// Order lifecycle.
	KindInvalidRequest    Kind = "invalid_request"
	KindCreateRejected    Kind = "create_rejected"
	KindRiskRejected      Kind = "risk_rejected"
	KindCaptureIncomplete Kind = "capture_incomplete"
	KindAlreadyCaptured   Kind = "already_captured"
	KindAlreadyProcessing Kind = "already_processing"

	// Risk evaluator could not be reached or answered abnormally.
	KindRiskUnavailable Kind = "risk_unavailable"

	// Webhook verification.
	KindMissingHeaders Kind = "missing_transmission_headers"
	KindVerifyRejected Kind = "verification_rejected"

	// Transport. Timeouts are kept distinct from other network failures so
	// callers can tell a slow processor from an unreachable one.
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
)

// Error carries the failure kind plus whatever context is safe to surface:
// the order id and the upstream HTTP status, never credentials or raw
// provider payloads.
type Error struct {
	Kind           Kind
	Message        string
	OrderID        string
	UpstreamStatus int
	cause          error
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) WithOrder(id string) *Error {
	e.OrderID = id
	return e
}

func (e *Error) WithUpstreamStatus(status int) *Error {
	e.UpstreamStatus = status
	return e
}

func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s: %s (order %s)", e.Kind, e.Message, e.OrderID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// IsKind reports whether err is a core *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// ErrKind extracts the kind from err, or "" when err is not a core error.
func ErrKind(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// HTTPStatus maps a failure kind onto the status the API layer responds
// with. Risk rejection is deliberately distinct from validation failures.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidRequest, KindMissingHeaders:
		return http.StatusBadRequest
	case KindRiskRejected:
		return http.StatusPaymentRequired
	case KindVerifyRejected:
		return http.StatusUnauthorized
	case KindAlreadyProcessing:
		return http.StatusConflict
	case KindAlreadyCaptured, KindCaptureIncomplete:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindMissingCredentials:
		return http.StatusInternalServerError
	case KindAuthRejected, KindCreateRejected, KindNetwork, KindRiskUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
