package signaling

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Akashh18/Webrtc/internal/turnrest"
)

func TestICEServersStunOnly(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewICEServersHandler([]string{"stun:stun.example:3478"}, nil, nil, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ice-servers", nil))

	if rec.Code != 200 {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp iceServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.ICEServers) != 1 || resp.ICEServers[0].URLs[0] != "stun:stun.example:3478" {
		t.Fatalf("servers=%+v", resp.ICEServers)
	}
	if resp.ICEServers[0].Username != "" || resp.ICEServers[0].Credential != "" {
		t.Fatalf("stun entry must not carry credentials: %+v", resp.ICEServers[0])
	}
}

func TestICEServersWithTURNCredentials(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vendor, err := turnrest.NewVendor("s3cret", time.Hour, "signal")
	if err != nil {
		t.Fatalf("NewVendor: %v", err)
	}
	h := NewICEServersHandler(
		[]string{"stun:stun.example:3478"},
		[]string{"turn:turn.example:3478?transport=udp"},
		vendor, logger,
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ice-servers", nil))

	var resp iceServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.ICEServers) != 2 {
		t.Fatalf("servers=%+v, want stun and turn entries", resp.ICEServers)
	}

	turn := resp.ICEServers[1]
	if turn.URLs[0] != "turn:turn.example:3478?transport=udp" {
		t.Fatalf("turn urls=%v", turn.URLs)
	}
	if turn.Credential == "" || !strings.Contains(turn.Username, ":signal:") {
		t.Fatalf("turn credentials not vended: %+v", turn)
	}
	if resp.ExpiresAt <= time.Now().Unix() {
		t.Fatalf("expiresAt=%d not in the future", resp.ExpiresAt)
	}

	// Each response gets its own credentials.
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest("GET", "/ice-servers", nil))
	var resp2 iceServersResponse
	if err := json.Unmarshal(rec2.Body.Bytes(), &resp2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp2.ICEServers[1].Username == turn.Username {
		t.Fatalf("credentials must be per-request")
	}
}
