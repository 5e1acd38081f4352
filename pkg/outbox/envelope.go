package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the newest payload layout Emit writes.
const EnvelopeVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
	ErrEmptyPayload       = errors.New("envelope payload missing")
)

// ActorRef identifies what produced the event: "webhook", "requery", "cron"
// or "api", plus the member when one is known.
type ActorRef struct {
	Source string     `json:"source"`
	UserID *uuid.UUID `json:"userId,omitempty"`
}

// PayloadEnvelope is what payment_outbox_events.payload holds. Data is the
// event-specific body from the payloads package.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(version int, occurredAt time.Time, actor *ActorRef, data json.RawMessage) PayloadEnvelope {
	if version == 0 {
		version = EnvelopeVersion
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt,
		Actor:      actor,
		Data:       data,
	}
}

// DecodeEnvelope parses a stored payload and rejects versions newer than
// this build understands or envelopes without data.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	trimmed := bytes.TrimSpace(env.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return PayloadEnvelope{}, ErrEmptyPayload
	}
	return env, nil
}
