package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const EnvelopeVersion = 1

// Envelope wraps an event payload with the metadata every sink receives.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	EntityID     ID              `json:"entity_id"`
	Payload      json.RawMessage `json:"payload"`
}

func NewEnvelope(event Event, producer string) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.GetName(), err)
	}
	return &Envelope{
		EventID:      uuid.NewString(),
		EventType:    event.GetName(),
		EventVersion: EnvelopeVersion,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		EntityID:     event.GetEntityID(),
		Payload:      payload,
	}, nil
}

// DecodeOrderCreated reads an encoded envelope. Envelopes of other event types
// yield a nil event and a nil error.
func DecodeOrderCreated(body []byte) (*OrderCreatedEvent, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.EventType != OrderCreatedEventName {
		return nil, nil
	}

	var event OrderCreatedEvent
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return &event, nil
}
