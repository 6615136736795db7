package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/parkinglot-core/internal/events"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/config"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/logging"
)

// Frame types written to WebSocket clients.
const (
	// FrameSnapshot carries every slot's state. It is the first frame on a
	// connection subscribed to the slots channel.
	FrameSnapshot = "snapshot"
	// FrameEvent carries one broadcast.
	FrameEvent = "event"
)

const (
	// wsSendBufferSize is the per-client outbound queue. A client whose
	// queue is full is disconnected and must reconnect for a fresh snapshot.
	wsSendBufferSize = 64

	// closeTooSlow is sent to clients dropped for falling behind.
	closeTooSlow = "client too slow"
)

var errHubClosed = errors.New("websocket hub closed")

// Frame is the only message the server writes. Clients never send data
// frames; anything they send is discarded.
type Frame struct {
	Type      string    `json:"type"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// knownChannels are the channels the event bus broadcasts on.
var knownChannels = []string{events.ChannelReservations, events.ChannelSlots}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// Hub fans broadcasts out to connected clients. Each client picks its
// channels when it connects; the set is fixed for the connection.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

// wsClient is one connection. send is closed by the hub, under its write
// lock, exactly once.
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	channels  map[string]bool
	subject   string
	closeCode int
	closeText string
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client and
// refuses new ones.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.detachLocked(c, websocket.CloseGoingAway, "server shutting down")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues payload for every client subscribed to channel. Clients
// with a full queue are dropped.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(Frame{
		Type:      FrameEvent,
		Channel:   channel,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to encode broadcast", "channel", channel, "error", err)
		return
	}

	var slow []*wsClient
	sent := 0
	h.mu.RLock()
	for c := range h.clients {
		if !c.channels[channel] {
			continue
		}
		select {
		case c.send <- data:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", "subject", c.subject, "channel", channel)
		h.detach(c, websocket.CloseTryAgainLater, closeTooSlow)
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sent)
	}
}

// attach registers c. If first is non-nil its frame is queued before c
// becomes visible to Broadcast, so it is always the first frame written.
func (h *Hub) attach(c *wsClient, first func() (*Frame, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errHubClosed
	}
	if first != nil {
		frame, err := first()
		if err != nil {
			return err
		}
		data, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("encoding %s frame: %w", frame.Type, err)
		}
		c.send <- data
	}
	h.clients[c] = struct{}{}
	return nil
}

// detach removes c and closes its queue. Safe to call more than once.
func (h *Hub) detach(c *wsClient, code int, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c, code, text)
}

func (h *Hub) detachLocked(c *wsClient, code int, text string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.closeCode, c.closeText = code, text
	close(c.send)
}

// parseChannels reads the comma separated channels query parameter.
// Empty means every channel.
func parseChannels(raw string) (map[string]bool, error) {
	channels := make(map[string]bool, len(knownChannels))
	if strings.TrimSpace(raw) == "" {
		for _, ch := range knownChannels {
			channels[ch] = true
		}
		return channels, nil
	}

	for _, ch := range strings.Split(raw, ",") {
		ch = strings.TrimSpace(ch)
		known := false
		for _, k := range knownChannels {
			if ch == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown channel %q", ch)
		}
		channels[ch] = true
	}
	return channels, nil
}

// handleWebSocket upgrades an authenticated request to an event stream.
// The channels query parameter selects reservations, slots or both.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "bearer token is required")
		return
	}
	channels, err := parseChannels(r.URL.Query().Get("channels"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: channels,
		subject:  claims.Subject,
	}

	var first func() (*Frame, error)
	if channels[events.ChannelSlots] {
		first = func() (*Frame, error) { return s.slotSnapshot(r.Context()) }
	}
	if err := s.hub.attach(client, first); err != nil {
		s.logger.Warn("websocket client rejected", "subject", claims.Subject, "error", err)
		//nolint:errcheck // Best-effort close message
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "unavailable"))
		conn.Close()
		return
	}
	s.logger.Info("websocket client connected",
		"subject", claims.Subject,
		"role", claims.Role,
		"reservations", channels[events.ChannelReservations],
		"slots", channels[events.ChannelSlots],
	)

	go client.writePump(s.hub.cfg)
	go client.readPump(s.hub)
}

// slotSnapshot returns every slot's state in the shape of slots-channel
// broadcasts. Clients apply states by updated_at.
func (s *Server) slotSnapshot(ctx context.Context) (*Frame, error) {
	slots, err := s.query.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	states := make([]events.SlotState, len(slots))
	for i, slot := range slots {
		states[i] = events.SlotState{
			SlotNumber: slot.SlotNumber,
			Status:     slot.Status,
			UpdatedAt:  slot.UpdatedAt,
		}
	}
	return &Frame{
		Type:      FrameSnapshot,
		Channel:   events.ChannelSlots,
		Timestamp: time.Now().UTC(),
		Payload:   states,
	}, nil
}

// wsTimings returns the ping interval and pong timeout, falling back to
// 30s and 10s when unset.
func wsTimings(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping, pong = 30*time.Second, 10*time.Second
	if cfg.PingInterval > 0 {
		ping = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		pong = time.Duration(cfg.PongTimeout) * time.Second
	}
	return ping, pong
}

// readPump keeps the read deadline alive and notices disconnects. Data
// frames from the client are ignored.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.detach(c, websocket.CloseNormalClosure, "")
		c.conn.Close()
	}()

	if h.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	}
	ping, pong := wsTimings(h.cfg)
	wait := ping + pong
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(wait))
	}
}

// writePump drains the send queue and pings. When the hub closes the
// queue it sends the recorded close code and hangs up.
func (c *wsClient) writePump(cfg config.WebSocketConfig) {
	ping, writeWait := wsTimings(cfg)
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(c.closeCode, c.closeText))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
