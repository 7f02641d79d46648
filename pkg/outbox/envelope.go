package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// ActorRef identifies who caused the event: a buyer for checkout events, a
// provider for webhook-driven payment changes.
type ActorRef struct {
	UserID   string `json:"userId,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Envelope is the outbox_events.payload column and the Pub/Sub message body.
// Subject is the aggregate id, so consumers can order and dedupe without
// reading message attributes.
type Envelope struct {
	Version    int                   `json:"version"`
	EventID    string                `json:"eventId"`
	EventType  enums.OutboxEventType `json:"eventType"`
	Subject    string                `json:"subject"`
	OccurredAt time.Time             `json:"occurredAt"`
	Actor      *ActorRef             `json:"actor,omitempty"`
	Data       json.RawMessage       `json:"data"`
}

// DecodeEnvelope parses a stored payload and rejects envelopes without an
// event id or data.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return Envelope{}, errors.New("envelope has no eventId")
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Envelope{}, fmt.Errorf("envelope %s has no data", env.EventID)
	}
	return env, nil
}
