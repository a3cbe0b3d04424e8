package processor

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionTime string          `json:"transmission_time"`
	TransmissionSig  string          `json:"transmission_sig"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// WebhookVerifier delegates signature checks to the processor's verification
// endpoint. The outcome is a boolean trust decision: transport failures and
// non-SUCCESS statuses all mean "untrusted", never a fault the caller has to
// recover from.
type WebhookVerifier struct {
	client    *Client
	webhookID string
}

func NewWebhookVerifier(client *Client, webhookID string) *WebhookVerifier {
	return &WebhookVerifier{client: client, webhookID: webhookID}
}

func (v *WebhookVerifier) Verify(ctx context.Context, meta domain.TransmissionMeta, event json.RawMessage) (bool, error) {
	if !meta.Complete() {
		return false, domain.NewError(domain.KindMissingHeaders, "webhook delivery is missing transmission headers")
	}

	ctx, span := v.client.tracer.Start(ctx, "ProcessorVerifyWebhook")
	defer span.End()

	body := verifyRequest{
		AuthAlgo:         meta.AuthAlgo,
		CertURL:          meta.CertURL,
		TransmissionID:   meta.TransmissionID,
		TransmissionTime: meta.TransmissionTime,
		TransmissionSig:  meta.TransmissionSig,
		WebhookID:        v.webhookID,
		WebhookEvent:     event,
	}
	resp, err := v.client.post(ctx, "/v1/notifications/verify-webhook-signature", body)
	if err != nil {
		v.client.log.Warn("webhook verification unreachable", "transmission_id", meta.TransmissionID, "err", err)
		return false, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		v.client.log.Warn("webhook verification rejected", "transmission_id", meta.TransmissionID, "status", resp.StatusCode)
		return false, nil
	}

	var verdict verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, nil
	}
	return verdict.VerificationStatus == "SUCCESS", nil
}
