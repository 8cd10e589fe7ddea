package domain

import "encoding/json"

// Websocket envelope types exchanged on /ws.
const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgSubscribed  = "subscribed"
	MsgCheckin     = "checkin"
	MsgCheckinPoke = "checkin_poke"
	MsgError       = "error"
)

// Envelope is the outer frame of every websocket message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribeRequest registers interest in one collection. The credential is
// held only for the lifetime of the connection and never persisted.
// Re-subscribing on the same connection replaces the previous subscription.
type SubscribeRequest struct {
	CollectionID string `json:"collection_id"`
	Credential   string `json:"credential,omitempty"`
}

// UnsubscribeRequest leaves a collection.
type UnsubscribeRequest struct {
	CollectionID string `json:"collection_id"`
}

// SubscribeAck confirms a subscription took effect.
type SubscribeAck struct {
	CollectionID string `json:"collection_id"`
}

// NewEnvelope marshals payload into an Envelope. Marshal errors are
// impossible for the protocol's static payload types, so they panic.
func NewEnvelope(msgType string, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic("domain: unmarshalable protocol payload: " + err.Error())
	}
	return Envelope{Type: msgType, Payload: raw}
}
