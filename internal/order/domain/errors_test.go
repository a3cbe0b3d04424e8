package domain

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKindThroughWrapping(t *testing.T) {
	base := NewError(KindCreateRejected, "boom").WithOrder("ord-1")
	wrapped := fmt.Errorf("outer: %w", base)

	assert.True(t, IsKind(wrapped, KindCreateRejected))
	assert.False(t, IsKind(wrapped, KindRiskRejected))
	assert.Equal(t, KindCreateRejected, ErrKind(wrapped))
	assert.Equal(t, Kind(""), ErrKind(fmt.Errorf("plain")))
}

func TestErrorMessageCarriesOrderID(t *testing.T) {
	err := NewError(KindCaptureIncomplete, "capture status is PENDING").WithOrder("ord-9")
	assert.Contains(t, err.Error(), "ord-9")
	assert.Contains(t, err.Error(), string(KindCaptureIncomplete))
}

func TestHTTPStatusDistinctions(t *testing.T) {
	// Risk rejection must not collapse into the validation status.
	assert.NotEqual(t, HTTPStatus(KindInvalidRequest), HTTPStatus(KindRiskRejected))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidRequest))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindAlreadyProcessing))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(KindTimeout))
	// Timeouts stay distinguishable from generic upstream failure.
	assert.NotEqual(t, HTTPStatus(KindNetwork), HTTPStatus(KindTimeout))
}
