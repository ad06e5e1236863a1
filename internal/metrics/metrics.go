package metrics

import "sync"

// Counter names used across the signaling coordinator and upload ingestion.
const (
	RoomJoin            = "room_join"
	RoomJoinInvalid     = "room_join_invalid"
	RoomJoinFull        = "room_join_full"
	RelayForwarded      = "relay_forwarded"
	RelayUnknownDest    = "relay_unknown_destination"
	RelayUnknownEvent   = "relay_unknown_event"
	Disconnect          = "disconnect"
	DropReasonRateLimit = "rate_limited"
	DropReasonSlowConn  = "send_queue_full"

	UploadChunkSaved      = "upload_chunk_saved"
	UploadChunkRetried    = "upload_chunk_retried"
	UploadFileAssembled   = "upload_file_assembled"
	UploadRequestRejected = "upload_request_rejected"
	UploadFailed          = "upload_failed"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// It keeps coordinator drop/reject paths observable and testable without
// pulling a full metrics backend into the core.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
