package server

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/voicedesk/internal/conversation"
	"github.com/ziadkadry99/voicedesk/internal/escalation"
	"github.com/ziadkadry99/voicedesk/internal/session"
)

// Event is the outgoing websocket message envelope.
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType string, data map[string]any) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}

// client is one connected websocket consumer. Writes go through a buffered
// channel drained by a single pump goroutine, since gorilla connections
// permit only one concurrent writer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub tracks connected clients and fans events out to them. It implements
// conversation.Events so the state machine pushes directly to the browser.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register adds a connection and starts its write pump.
func (h *Hub) Register(id string, conn *websocket.Conn) {
	c := &client{id: id, conn: conn, send: make(chan Event, 64)}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()

	go c.writePump()
}

// Unregister removes a connection and stops its pump.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client. Slow clients drop events
// rather than stall the rest.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(ev)
	}
}

// SendTo queues an event for one client.
func (h *Hub) SendTo(id string, ev Event) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if ok {
		c.enqueue(ev)
	}
}

func (c *client) enqueue(ev Event) {
	select {
	case c.send <- ev:
	default:
		log.Printf("server: dropping %s event for slow client %s", ev.Type, c.id)
	}
}

func (c *client) writePump() {
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			log.Printf("server: websocket write to %s: %v", c.id, err)
			return
		}
	}
}

// conversation.Events implementation.

func (h *Hub) VoiceState(sessionID string, state conversation.State, turn int) {
	h.Broadcast(NewEvent("voice_state_update", map[string]any{
		"session_id": sessionID,
		"state":      string(state),
		"turn":       turn,
	}))
}

func (h *Hub) NewMessage(sessionID string, msg session.Message) {
	h.Broadcast(NewEvent("new_message", map[string]any{
		"session_id": sessionID,
		"message":    msg,
	}))
}

func (h *Hub) Filler(sessionID string, phrase string) {
	h.Broadcast(NewEvent("new_message", map[string]any{
		"session_id": sessionID,
		"message": session.Message{
			Content:   phrase,
			Speaker:   "assistant",
			Timestamp: time.Now().UTC(),
		},
		"filler": true,
	}))
}

func (h *Hub) AgentRouting(sessionID string, targets []string, intentType string) {
	h.Broadcast(NewEvent("agent_routing", map[string]any{
		"session_id": sessionID,
		"targets":    targets,
		"intent":     intentType,
	}))
}

func (h *Hub) EscalationAlert(sessionID string, event escalation.Event) {
	h.Broadcast(NewEvent("escalation_alert", map[string]any{
		"session_id": sessionID,
		"event":      event,
	}))
}
