package signaling

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Akashh18/Webrtc/internal/config"
	"github.com/Akashh18/Webrtc/internal/metrics"
	"github.com/Akashh18/Webrtc/internal/origin"
	"github.com/Akashh18/Webrtc/internal/ratelimit"
)

const wsWriteWait = 10 * time.Second

// WSServer upgrades HTTP requests to signaling WebSocket connections and
// feeds their events to the Coordinator.
//
// Each connection gets a read pump (inbound events, keepalive deadlines,
// per-connection rate limit) and a write pump (outbound queue, pings) so a
// stuck receiver never blocks anyone's send path.
type WSServer struct {
	log     *slog.Logger
	coord   *Coordinator
	metrics *metrics.Metrics

	idleTimeout       time.Duration
	pingInterval      time.Duration
	sendQueueSize     int
	maxMessageBytes   int64
	messagesPerSecond int

	upgrader websocket.Upgrader
}

func NewWSServer(cfg config.Config, logger *slog.Logger, coord *Coordinator, m *metrics.Metrics) *WSServer {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	allowlist := origin.ParseAllowlist(cfg.AllowedOrigins)
	return &WSServer{
		log:     logger,
		coord:   coord,
		metrics: m,

		idleTimeout:       cfg.WSIdleTimeout,
		pingInterval:      cfg.WSPingInterval,
		sendQueueSize:     cfg.SendQueueSize,
		maxMessageBytes:   cfg.MaxSignalingMessageBytes,
		messagesPerSecond: cfg.MaxSignalingMessagesPerSecond,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Non-browser clients send no Origin header.
				if r.Header.Get("Origin") == "" {
					return true
				}
				return allowlist.Permits(r.Header.Get("Origin"), r.Host)
			},
		},
	}
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err, "remote_addr", r.RemoteAddr)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		srv:  s,
		conn: conn,
		send: make(chan Envelope, s.sendQueueSize),
		limiter: ratelimit.NewTokenBucket(
			ratelimit.RealClock{},
			int64(s.messagesPerSecond),
			int64(s.messagesPerSecond),
		),
	}

	s.coord.Connect(c.id, c)

	go c.writePump()
	go c.readPump()
}

// client is one live signaling connection. Its connection handle doubles as
// the address peers use in relay events.
type client struct {
	id      string
	srv     *WSServer
	conn    *websocket.Conn
	send    chan Envelope
	limiter *ratelimit.TokenBucket
}

// Send queues env for delivery. It never blocks; a full queue drops the
// message and reports false.
func (c *client) Send(env Envelope) bool {
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// readPump is the single reader of the connection. It exits on read error or
// close, and its teardown is the exactly-once disconnect notification for
// this connection.
func (c *client) readPump() {
	defer func() {
		// Disconnect removes the client from the coordinator under its lock,
		// so no Send can race the channel close below.
		c.srv.coord.Disconnect(c.id)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.srv.maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.srv.idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.srv.idleTimeout))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.srv.log.Warn("websocket read failed", "conn_id", c.id, "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.srv.idleTimeout))

		if !c.limiter.Allow(1) {
			c.srv.metrics.Inc(metrics.DropReasonRateLimit)
			c.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			c.closeWith(websocket.CloseUnsupportedData, "expected text message")
			return
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			// A malformed frame is dropped, not fatal: the negotiation layer
			// above tolerates loss, and clients stay connected.
			c.srv.log.Warn("malformed signaling frame dropped", "conn_id", c.id, "err", err)
			continue
		}

		c.srv.coord.HandleEvent(c.id, env)
	}
}

// writePump is the single writer of the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(c.srv.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.srv.log.Warn("websocket write failed", "conn_id", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) closeWith(code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}
