package events

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Channel names match the topics published by the swap backend.
const (
	ChannelSkill        = "SkillEvent"
	ChannelFeedback     = "FeedbackEvent"
	ChannelSwapProposal = "SwapProposalEvent"
)

// CloudEvent is the envelope the backend wraps domain events in. Producers
// occasionally publish the bare payload instead, so every field is optional.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion,omitempty"`
	ID              string          `json:"id,omitempty"`
	Source          string          `json:"source,omitempty"`
	Subject         string          `json:"subject,omitempty"`
	Type            string          `json:"type,omitempty"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Time            string          `json:"time,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

type SkillEvent struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

type FeedbackEvent struct {
	Rating      float64  `json:"rating"`
	Review      string   `json:"review,omitempty"`
	ReviewerUID string   `json:"reviewerUid"`
	ReviewedUID string   `json:"reviewedUid"`
	Skills      []string `json:"skills,omitempty"`
	Type        string   `json:"type,omitempty"`
}

type SwapProposalEvent struct {
	ID               int64  `json:"id"`
	RequestUserUID   string `json:"requestUserUid"`
	OfferUserUID     string `json:"offerUserUid"`
	SkillOfferedID   int64  `json:"skillOfferedId"`
	SkillRequestedID int64  `json:"skillRequestedId"`
	Status           string `json:"status"`
	Type             string `json:"type,omitempty"`
}

// eventIDFrom returns the envelope id when present, or a generated one so
// every delivery is traceable in logs.
func eventIDFrom(raw []byte) string {
	var envelope CloudEvent
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.ID != "" {
		return envelope.ID
	}
	return uuid.NewString()
}

// unwrap returns the payload and event type from either a CloudEvent envelope
// or a bare payload, with defaultType used when neither carries one.
func unwrap(raw []byte, defaultType string) (payload []byte, eventType string) {
	var envelope CloudEvent
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && envelope.Type != "" {
		return envelope.Data, envelope.Type
	}

	var probe struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &probe)
	if probe.Type != "" {
		return raw, probe.Type
	}
	return raw, defaultType
}
