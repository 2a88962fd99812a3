package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/pkg/enums"
)

// CurrentEnvelopeVersion is stamped on events that do not ask for a specific version.
const CurrentEnvelopeVersion = 1

// ActorRef identifies who caused the event. Buyers carry UserID, sellers carry SellerID.
type ActorRef struct {
	UserID   uuid.UUID  `json:"userId"`
	SellerID *uuid.UUID `json:"sellerId,omitempty"`
	Role     string     `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and shipped verbatim to
// the broker. Consumers dedupe on EventID.
type PayloadEnvelope struct {
	Version    int                   `json:"version"`
	EventID    string                `json:"eventId"`
	EventType  enums.OutboxEventType `json:"eventType,omitempty"`
	OccurredAt time.Time             `json:"occurredAt"`
	Actor      *ActorRef             `json:"actor,omitempty"`
	Data       json.RawMessage       `json:"data"`
}

// DecodeEnvelope parses a stored payload.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
