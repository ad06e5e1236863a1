package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Akashh18/Webrtc/internal/metrics"
	"github.com/Akashh18/Webrtc/internal/registry"
	"github.com/Akashh18/Webrtc/internal/rooms"
)

// Participant-facing error texts. Part of the wire contract.
const (
	errRoomFull    = "Room already has two members. Cannot join."
	errInvalidJoin = "Invalid email or room"
)

// Sender delivers one outbound envelope to a connection. Delivery is
// best-effort and must not block; implementations report false when the
// message was dropped (e.g. the connection's send queue is full).
type Sender interface {
	Send(env Envelope) bool
}

// Coordinator is the event-driven state machine behind the signaling
// socket. It owns the connection registry, the room table and the live
// connection set behind a single mutex: join, leave, bind and unbind are
// atomic with respect to each other regardless of how many transport
// goroutines feed it.
type Coordinator struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	registry *registry.Registry
	rooms    *rooms.Table
	conns    map[string]Sender
}

func NewCoordinator(logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Coordinator{
		log:      logger,
		metrics:  m,
		registry: registry.New(),
		rooms:    rooms.NewTable(),
		conns:    make(map[string]Sender),
	}
}

// Connect registers a new live connection. The connection is not in any
// room until it sends room:join.
func (c *Coordinator) Connect(connID string, s Sender) {
	c.mu.Lock()
	c.conns[connID] = s
	c.mu.Unlock()

	c.log.Debug("connection established", "conn_id", connID)
}

// Disconnect tears down all state for connID: room membership, registry
// binding and the connection itself. Safe to call for unknown connections.
// Remaining room members are not notified; they learn of the departure only
// through their peer connection.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	roomID, deleted := c.rooms.Leave(connID)
	c.registry.Unbind(connID)
	delete(c.conns, connID)
	c.mu.Unlock()

	c.metrics.Inc(metrics.Disconnect)
	if roomID != "" {
		c.log.Info("connection left room", "conn_id", connID, "room", roomID, "room_deleted", deleted)
	} else {
		c.log.Debug("connection closed", "conn_id", connID)
	}
}

// HandleEvent processes one inbound event from connID to completion:
// validation, state mutation and outbound emission all happen before the
// next event from the same connection is handled. Malformed input never
// propagates an error to the caller; it is answered or dropped here.
func (c *Coordinator) HandleEvent(connID string, env Envelope) {
	switch env.Event {
	case EventRoomJoin:
		c.handleJoin(connID, env.Data)
	default:
		if _, ok := relayRoutes[env.Event]; ok {
			c.handleRelay(connID, env.Event, env.Data)
			return
		}
		c.metrics.Inc(metrics.RelayUnknownEvent)
		c.log.Warn("unknown event dropped", "conn_id", connID, "event", env.Event)
	}
}

func (c *Coordinator) handleJoin(connID string, data json.RawMessage) {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Email == "" || req.Room == "" {
		c.metrics.Inc(metrics.RoomJoinInvalid)
		c.sendError(connID, errInvalidJoin)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Reject a full room before touching any state.
	if members := c.rooms.MembersOf(req.Room); len(members) >= rooms.MaxMembers {
		c.metrics.Inc(metrics.RoomJoinFull)
		c.sendErrorLocked(connID, errRoomFull)
		return
	}

	// A connection lives in at most one room; joining a new room implicitly
	// leaves the old one.
	if prev, ok := c.rooms.RoomOf(connID); ok && prev != req.Room {
		c.rooms.Leave(connID)
	}

	c.registry.Bind(req.Email, connID)
	members, err := c.rooms.Join(req.Room, connID)
	if err != nil {
		// The capacity check above holds the same lock, so Join cannot fail.
		c.log.Error("room join failed after capacity check", "conn_id", connID, "room", req.Room, "err", err)
		return
	}

	c.metrics.Inc(metrics.RoomJoin)
	c.log.Info("joined room", "conn_id", connID, "room", req.Room, "email", req.Email, "members", len(members))

	// Echo the join back to the sender with its original payload, then tell
	// the whole room who arrived and what the roster now looks like.
	c.emitLocked(connID, Envelope{Event: EventRoomJoin, Data: data})

	joined, err := NewEnvelope(EventUserJoined, UserJoined{Email: req.Email, ID: connID})
	if err == nil {
		c.emitRoomLocked(members, joined)
	}

	roster := RoomUsers{Users: make([]RoomUser, 0, len(members))}
	for _, id := range members {
		email, ok := c.registry.LookupEmail(id)
		if !ok {
			// Every room member joined through this path, so a missing
			// binding means the state machine is broken.
			c.log.Error("room member missing from registry", "conn_id", id, "room", req.Room)
			continue
		}
		roster.Users = append(roster.Users, RoomUser{ID: id, Email: email})
	}
	users, err := NewEnvelope(EventRoomUsers, roster)
	if err == nil {
		c.emitRoomLocked(members, users)
	}
}

func (c *Coordinator) handleRelay(connID, event string, data json.RawMessage) {
	var payload RelayPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.To == "" {
		c.metrics.Inc(metrics.RelayUnknownDest)
		c.log.Warn("relay event without destination dropped", "conn_id", connID, "event", event)
		return
	}

	out := payload
	out.To = ""
	out.From = connID

	env, err := NewEnvelope(relayRoutes[event], out)
	if err != nil {
		c.log.Warn("relay payload not marshalable", "conn_id", connID, "event", event, "err", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	target, ok := c.conns[payload.To]
	if !ok {
		// Destination already disconnected (or never existed). The sender is
		// not told; it observes the failure at the peer-connection layer.
		c.metrics.Inc(metrics.RelayUnknownDest)
		c.log.Warn("relay to unknown destination dropped", "conn_id", connID, "event", event, "to", payload.To)
		return
	}

	if !target.Send(env) {
		c.metrics.Inc(metrics.DropReasonSlowConn)
		c.log.Warn("relay dropped on full send queue", "conn_id", connID, "event", event, "to", payload.To)
		return
	}
	c.metrics.Inc(metrics.RelayForwarded)
	c.log.Debug("relayed", "event", event, "from", connID, "to", payload.To)
}

// sendError delivers an error event to a single connection. Callers must not
// hold the coordinator mutex.
func (c *Coordinator) sendError(connID, message string) {
	c.mu.Lock()
	c.sendErrorLocked(connID, message)
	c.mu.Unlock()
}

func (c *Coordinator) sendErrorLocked(connID, message string) {
	env, err := NewEnvelope(EventError, ErrorMessage{Message: message})
	if err != nil {
		return
	}
	c.emitLocked(connID, env)
}

func (c *Coordinator) emitLocked(connID string, env Envelope) {
	target, ok := c.conns[connID]
	if !ok {
		return
	}
	if !target.Send(env) {
		c.metrics.Inc(metrics.DropReasonSlowConn)
		c.log.Warn("outbound event dropped on full send queue", "conn_id", connID, "event", env.Event)
	}
}

func (c *Coordinator) emitRoomLocked(members []string, env Envelope) {
	for _, id := range members {
		c.emitLocked(id, env)
	}
}
