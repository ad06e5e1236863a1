package signaling

import (
	"encoding/json"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"room:join","data":{"email":"a@x.com","room":"r1"}}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.Event != EventRoomJoin {
		t.Fatalf("event=%q, want %q", env.Event, EventRoomJoin)
	}
	var req JoinRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if req.Email != "a@x.com" || req.Room != "r1" {
		t.Fatalf("payload=%+v", req)
	}
}

func TestParseEnvelopeRejects(t *testing.T) {
	cases := map[string]string{
		"not json":            `hello`,
		"missing event":       `{"data":{}}`,
		"unknown field":       `{"event":"room:join","data":{},"extra":1}`,
		"trailing data":       `{"event":"room:join"}{"event":"room:join"}`,
		"wrong envelope type": `["room:join"]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseEnvelope([]byte(raw)); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(EventError, ErrorMessage{Message: "Invalid email or room"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if got := string(env.Data); got != `{"message":"Invalid email or room"}` {
		t.Fatalf("data=%s", got)
	}
}

// Outbound relay payloads must not leak the inbound "to" field and must keep
// opaque fields under their exact wire names.
func TestRelayPayloadWireShape(t *testing.T) {
	out := RelayPayload{From: "A", Offer: json.RawMessage(`{"sdp":"x"}`)}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(data); got != `{"from":"A","offer":{"sdp":"x"}}` {
		t.Fatalf("wire=%s", got)
	}
}
