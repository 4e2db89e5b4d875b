package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/pkg/logger"
	"github.com/osirix/clinique-api/pkg/messaging"
	"github.com/osirix/clinique-api/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 32
)

type client struct {
	session *model.Session
	conn    *websocket.Conn
	send    chan []byte
}

// Hub relays appointment events from the broker to connected websocket
// clients. Staff receive every event; patients only events about their own
// appointments. A client whose buffer is full misses the event.
type Hub struct {
	broker   messaging.Broker
	metrics  *metrics.Metrics
	logger   *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(broker messaging.Broker, m *metrics.Metrics, log *logger.Logger, allowedOrigins []string) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	h := &Hub{
		broker:  broker,
		metrics: m,
		logger:  log.With("notification-hub"),
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Start subscribes to the appointment channel and relays events until ctx
// is done. It returns once the subscription is in place.
func (h *Hub) Start(ctx context.Context) error {
	msgs, err := h.broker.Subscribe(ctx, Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	go func() {
		for raw := range msgs {
			h.dispatch(raw)
		}
		h.closeAll()
		h.logger.Info("Notification hub stopped")
	}()

	return nil
}

func (h *Hub) dispatch(raw []byte) {
	var event model.AppointmentEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.logger.Error(err, "Discarding malformed appointment event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.session.CanAccess(event.PatientID) {
			continue
		}
		select {
		case c.send <- raw:
		default:
			h.logger.Warn("Dropping event for slow client", "user_id", c.session.UserID.String())
		}
	}
}

// ServeWS upgrades the request and registers the connection for session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, session *model.Session) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &client{
		session: session,
		conn:    conn,
		send:    make(chan []byte, clientBuffer),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectedClients.Inc()
	}
	h.logger.Debug("Client connected", "user_id", c.session.UserID.String(), "role", string(c.session.Role))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok && h.metrics != nil {
		h.metrics.ConnectedClients.Dec()
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// readPump only services control frames; clients do not send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Websocket closed unexpectedly", "error", err.Error())
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
