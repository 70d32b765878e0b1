// Package websocket pushes events to the browser tabs of a client over
// WebSocket connections. Each connection is bound to the client namespace
// of the request that opened it.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sanjeevni/portal/internal/platform/store"
)

const sendBuffer = 32

// Event is one message written to a connection.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber is a single connection of one client.
type Subscriber struct {
	ID       string
	ClientID string
	Send     chan []byte
}

func newSubscriber(clientID string) *Subscriber {
	return &Subscriber{
		ID:       uuid.New().String(),
		ClientID: clientID,
		Send:     make(chan []byte, sendBuffer),
	}
}

// Hub tracks open connections per client namespace.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Subscriber]struct{}
	now     func() time.Time
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Subscriber]struct{}),
		now:     time.Now,
		logger:  logger,
	}
}

func (h *Hub) Register(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[sub.ClientID] == nil {
		h.clients[sub.ClientID] = make(map[*Subscriber]struct{})
	}
	h.clients[sub.ClientID][sub] = struct{}{}
}

// Unregister removes sub and closes its Send channel. Safe to call twice.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[sub.ClientID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.clients, sub.ClientID)
	}
	close(sub.Send)
}

// Publish sends an event to every connection of the context's client.
// Connections whose buffer is full miss the event.
func (h *Hub) Publish(ctx context.Context, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Event{Type: eventType, Timestamp: h.now().UTC(), Data: raw})
	if err != nil {
		return err
	}

	clientID := store.ClientFromContext(ctx)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.clients[clientID] {
		select {
		case sub.Send <- data:
		default:
			h.logger.Warn().Str("client_id", clientID).Str("subscriber", sub.ID).Msg("websocket buffer full, event dropped")
		}
	}
	return nil
}

// ClientCount returns the number of open connections for clientID.
func (h *Hub) ClientCount(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[clientID])
}

// Handler upgrades requests and streams the client's events.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler accepts upgrades from the browser origins in allowedOrigins,
// the same list the CORS middleware serves. "*" admits any origin. Requests
// without an Origin header come from non-browser clients and are admitted;
// the session gate still applies to them.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		o = normalizeOrigin(o)
		if o == "*" {
			wildcard = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[normalizeOrigin(origin)]
		return ok
	}
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

// RegisterRoutes mounts the stream at path on g.
func (h *Handler) RegisterRoutes(g *echo.Group, path string, mw ...echo.MiddlewareFunc) {
	g.GET(path, h.Connect, mw...)
}

func (h *Handler) Connect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := newSubscriber(store.ClientFromContext(c.Request().Context()))
	h.hub.Register(sub)
	conn := &gorillaConnAdapter{ws}

	go h.writePump(sub, conn)
	go h.readPump(sub, conn)
	return nil
}

// readPump drains inbound frames until the peer goes away.
func (h *Handler) readPump(sub *Subscriber, conn Conn) {
	defer func() {
		h.hub.Unregister(sub)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(sub *Subscriber, conn Conn) {
	defer conn.Close()
	for message := range sub.Send {
		if err := conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
