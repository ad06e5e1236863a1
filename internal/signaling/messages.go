package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Inbound event names. These, the outbound names and all payload field names
// below are part of the wire contract and must match the clients exactly.
const (
	EventRoomJoin     = "room:join"
	EventUserCall     = "user:call"
	EventCallAccepted = "call:accepted"
	EventICECandidate = "ice-candidate"
	EventNegoNeeded   = "peer:nego:needed"
	EventNegoDone     = "peer:nego:done"
)

// Outbound event names.
const (
	EventUserJoined = "user:joined"
	EventRoomUsers  = "room:users"
	EventError      = "error"
	// "incomming" is spelled this way on the wire; clients match on it.
	EventIncomingCall = "incomming:call"
	EventNegoFinal    = "peer:nego:final"
)

// relayRoutes maps each negotiation relay event to the event name delivered
// to the destination. Payloads pass through opaque; only the addressing
// changes (inbound "to" becomes outbound "from").
var relayRoutes = map[string]string{
	EventUserCall:     EventIncomingCall,
	EventCallAccepted: EventCallAccepted,
	EventICECandidate: EventICECandidate,
	EventNegoNeeded:   EventNegoNeeded,
	EventNegoDone:     EventNegoFinal,
}

// Envelope frames every message on the socket: a named event plus its
// structured payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParseEnvelope decodes a wire frame, rejecting unknown top-level fields and
// trailing data.
func ParseEnvelope(data []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("missing event name")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Envelope{}, fmt.Errorf("unexpected trailing data")
	}
	return env, nil
}

// NewEnvelope marshals payload into a wire frame for event.
func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}

// JoinRequest is the room:join payload. Echoed back to the sender unchanged
// on success.
type JoinRequest struct {
	Email string `json:"email"`
	Room  string `json:"room"`
}

// UserJoined announces a new member to everyone in the room.
type UserJoined struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

// RoomUser is one entry of the room roster.
type RoomUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// RoomUsers is the full roster broadcast after each join, in join order.
type RoomUsers struct {
	Users []RoomUser `json:"users"`
}

// ErrorMessage is delivered to the offending sender only.
type ErrorMessage struct {
	Message string `json:"message"`
}

// RelayPayload covers every negotiation relay event. The coordinator reads
// and rewrites only the addressing fields; offer/ans/candidate stay opaque
// and are forwarded byte for byte.
type RelayPayload struct {
	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`

	Offer     json.RawMessage `json:"offer,omitempty"`
	Ans       json.RawMessage `json:"ans,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}
