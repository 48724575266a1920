// Package realtime pushes incident and monitoring events to connected
// dashboards over WebSockets. Clients are addressed by the role and actor id
// carried in their auth claims; there is no client-driven subscription
// protocol.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/safecare/safecare/internal/platform/auth"
)

// Event types pushed to clients.
const (
	EventIncidentCreated      = "incident.created"
	EventIncidentNotification = "incident.notification"
	EventIncidentUpdated      = "incident.updated"
	EventVitalsRecorded       = "vitals.recorded"
	EventOverdueVitals        = "overdue.vitals"
	EventDashboardUpdate      = "dashboard.update"
	EventEmergencyConfirmed   = "emergency.confirmed"
)

// Event is the envelope every WebSocket message uses.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
}

// Broadcaster is the fan-out surface domain services depend on.
type Broadcaster interface {
	BroadcastAll(event Event)
	BroadcastRole(role string, event Event)
	SendToActor(actorID string, event Event)
}

// Client represents a single WebSocket connection bound to an authenticated
// actor. The hub only ever touches the Send channel; the transport handler
// owns the underlying connection.
type Client struct {
	ID        string
	ActorID   string
	ActorName string
	Role      string
	Send      chan []byte
}

// Hub is the presence registry and fan-out router. It tracks which actor is
// connected on which connection and routes events to all clients, to a role,
// or to a single actor. All operations are thread-safe via sync.RWMutex.
type Hub struct {
	mu     sync.RWMutex
	roles  map[string]map[*Client]struct{} // role -> set of clients
	actors map[string]*Client              // actor id -> active client
	all    map[*Client]struct{}
	logger zerolog.Logger
}

// NewHub creates a Hub ready to manage WebSocket clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		roles:  make(map[string]map[*Client]struct{}),
		actors: make(map[string]*Client),
		all:    make(map[*Client]struct{}),
		logger: logger,
	}
}

// RegisterActor adds a client to the hub. If the actor already has an active
// connection the old one is evicted; the latest registration wins so a page
// reload never leaves a stale connection receiving the actor's events.
func (h *Hub) RegisterActor(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.actors[client.ActorID]; ok && prev != client {
		h.removeLocked(prev)
	}

	h.all[client] = struct{}{}
	h.actors[client.ActorID] = client

	if h.roles[client.Role] == nil {
		h.roles[client.Role] = make(map[*Client]struct{})
	}
	h.roles[client.Role][client] = struct{}{}
}

// UnregisterClient removes a client from the hub and closes its Send channel.
// Unregistering a client that was already evicted is a no-op, so a slow
// disconnect never tears down the actor's replacement connection.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	h.removeLocked(client)
}

// removeLocked detaches a client from every index and closes its channel.
// Callers must hold h.mu.
func (h *Hub) removeLocked(client *Client) {
	if subscribers, ok := h.roles[client.Role]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.roles, client.Role)
		}
	}
	if h.actors[client.ActorID] == client {
		delete(h.actors, client.ActorID)
	}
	delete(h.all, client)
	close(client.Send)
}

// BroadcastAll sends an event to every connected client.
func (h *Hub) BroadcastAll(event Event) {
	data, ok := h.marshal(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.all {
		h.deliver(client, data)
	}
}

// BroadcastRole sends an event to every client holding the given role.
func (h *Hub) BroadcastRole(role string, event Event) {
	data, ok := h.marshal(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.roles[role] {
		h.deliver(client, data)
	}
}

// SendToActor sends an event to a single actor's active connection. Events
// for actors that are not connected are dropped.
func (h *Hub) SendToActor(actorID string, event Event) {
	data, ok := h.marshal(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, connected := h.actors[actorID]; connected {
		h.deliver(client, data)
	}
}

// deliver enqueues data on a client without blocking; a client that cannot
// drain its buffer loses events rather than stalling the router.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn().
			Str("actor_id", client.ActorID).
			Str("role", client.Role).
			Msg("client buffer full, dropping event")
	}
}

func (h *Hub) marshal(event Event) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("failed to marshal event")
		return nil, false
	}
	return data, true
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// Counts returns the number of connected clients per role.
func (h *Hub) Counts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.roles))
	for role, subscribers := range h.roles {
		counts[role] = len(subscribers)
	}
	return counts
}

// IsConnected reports whether an actor currently has an active connection.
func (h *Hub) IsConnected(actorID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.actors[actorID]
	return ok
}

// ---------------------------------------------------------------------------
// Handler — Echo HTTP handler for WebSocket connections
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler handles HTTP-to-WebSocket upgrades.
type Handler struct {
	hub *Hub
}

// NewHandler creates a handler bound to the given Hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.HandleConnect)
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// authenticated actor with the hub, and starts read/write pumps.
func (h *Handler) HandleConnect(c echo.Context) error {
	ctx := c.Request().Context()
	actorID := auth.ActorIDFromContext(ctx)
	if actorID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		ActorName: auth.ActorNameFromContext(ctx),
		Role:      auth.RoleFromContext(ctx),
		Send:      make(chan []byte, 256),
	}

	h.hub.RegisterActor(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)

	return nil
}

// readPump drains inbound frames until the connection drops. Clients do not
// send application messages; addressing comes from auth claims.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.UnregisterClient(client)
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages from the Send channel to the WebSocket connection.
func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}
