package domain

import "encoding/json"

// WebhookEvent is a processor-pushed notification. The resource shape depends
// on EventType, so it stays raw until downstream logic interprets it; the
// core only decides whether the event is trusted.
type WebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Resource     json.RawMessage `json:"resource,omitempty"`
	CreateTime   string          `json:"create_time,omitempty"`
}

// TransmissionMeta carries the five signature headers the processor attaches
// to every webhook delivery. All of them are required before verification is
// attempted.
type TransmissionMeta struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
}

func (m TransmissionMeta) Complete() bool {
	return m.AuthAlgo != "" && m.CertURL != "" && m.TransmissionID != "" &&
		m.TransmissionTime != "" && m.TransmissionSig != ""
}
