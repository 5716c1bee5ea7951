package realtime

import "encoding/json"

// Event names dispatched to Conn handlers
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"

	EventNewCallAnnounced   = "new-call-announced"
	EventRoundStatusChanged = "round-status-changed"
	EventGameStatusChanged  = "game-status-changed"
	EventWinnerAnnounced    = "winner-announced"
)

// Envelope is the JSON frame exchanged on a namespace
type Envelope struct {
	Event   string          `json:"event"`
	Status  string          `json:"status,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// Handler receives the envelopes of one event
type Handler func(Envelope)
