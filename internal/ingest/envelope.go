// Package ingest moves notification events through SQS: the publisher
// serializes dispatch requests for asynchronous processing and the consumer
// long-polls the queue and feeds decoded events into the pipeline.
package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"freightline/internal/types"
)

// EventEnvelope is the queue wire format for one dispatch request. Payload
// stays raw until the kind is known; DecodeEventPayload routes it to the
// right variant.
type EventEnvelope struct {
	Kind           types.Kind      `json:"type"`
	OrganizationID string          `json:"organizationId"`
	TargetID       string          `json:"targetId"`
	CreatedByID    string          `json:"createdById"`
	Payload        json.RawMessage `json:"payload,omitempty"`

	Receivers           []types.Recipient `json:"receivers,omitempty"`
	RoleNames           []string          `json:"roleNames,omitempty"`
	AuthToken           string            `json:"authToken,omitempty"`
	ExcludeParticipants bool              `json:"excludeParticipants,omitempty"`

	// EnqueuedAt feeds the queue lag metric.
	EnqueuedAt time.Time `json:"enqueuedAt,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
}

// Event decodes the envelope into a pipeline event. A malformed payload is
// a validation error: the message is poison and must not be redelivered.
func (e EventEnvelope) Event() (types.NotificationEvent, error) {
	payload, err := types.DecodeEventPayload(e.Kind, e.Payload)
	if err != nil {
		return types.NotificationEvent{}, fmt.Errorf("Event: %w", err)
	}
	return types.NotificationEvent{
		Kind:           e.Kind,
		OrganizationID: e.OrganizationID,
		TargetID:       e.TargetID,
		CreatedByID:    e.CreatedByID,
		Payload:        payload,
	}, nil
}
