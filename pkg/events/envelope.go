package events

import (
	"encoding/json"
	"time"

	"github.com/carretedigital/carrete-backend/pkg/enums"
)

// PayloadEnvelope is the stored/published shape of one order trigger
// event on the bus.
type PayloadEnvelope struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Envelope is the decoded, canonical form handed to handlers.
type Envelope struct {
	EventID    string               `json:"event_id"`
	EventType  enums.OrderEventType `json:"event_type"`
	OrderID    string               `json:"order_id"`
	OccurredAt time.Time            `json:"occurred_at"`
	Payload    json.RawMessage      `json:"payload"`
}

// OrderChangedEvent carries the raw before/after images of one order
// record write. Before is absent on first sight of an order; After is
// absent on deletion.
type OrderChangedEvent struct {
	OrderID string          `json:"order_id"`
	Before  json.RawMessage `json:"before,omitempty"`
	After   json.RawMessage `json:"after,omitempty"`
}

// BeforeMap decodes the before image into a keyed map, nil when absent.
func (e OrderChangedEvent) BeforeMap() (map[string]any, error) {
	return decodeImage(e.Before)
}

// AfterMap decodes the after image into a keyed map, nil when absent.
func (e OrderChangedEvent) AfterMap() (map[string]any, error) {
	return decodeImage(e.After)
}

func decodeImage(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
