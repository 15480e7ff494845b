package services

import (
	"log/slog"
	"sync"
)

// EventWriter delivers one event-channel message to a single client.
// The websocket endpoint wraps its connection in one; tests substitute a
// recording fake.
type EventWriter interface {
	WriteEvent(event string, data interface{}) error
}

// Client is a live event-channel connection bound (or about to be bound)
// to a group. ID is the opaque connection reference used everywhere a
// presence refers back to its connection.
type Client struct {
	ID     string
	writer EventWriter
}

func NewClient(id string, w EventWriter) *Client {
	return &Client{ID: id, writer: w}
}

// Send delivers one event to this client only.
func (c *Client) Send(event string, data interface{}) error {
	metricBroadcastsTotal.WithLabelValues(event).Inc()
	return c.writer.WriteEvent(event, data)
}

// Hub fans events out to every connection currently bound to a group.
// The group->connections index is transient and lives only here; it is
// distinct from the persisted roster, which never shrinks.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[string]*Client
	log    *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[string]*Client),
		log:    slog.Default(),
	}
}

// Bind adds the client to the group's live set. Callers hold the group's
// mutation lock so a broadcast never races a half-bound connection.
func (h *Hub) Bind(groupID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.groups[groupID]
	if !ok {
		conns = make(map[string]*Client)
		h.groups[groupID] = conns
	}
	conns[client.ID] = client
}

// Unbind removes the connection from the group's live set.
func (h *Hub) Unbind(groupID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.groups[groupID]
	if !ok {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(h.groups, groupID)
	}
}

// Broadcast delivers the event to every connection bound to the group,
// originator included. Offline connections get no replay; they pick the
// state back up from the snapshot on their next join.
func (h *Hub) Broadcast(groupID, event string, data interface{}) {
	h.fanOut(groupID, "", event, data)
}

// BroadcastExcept delivers to every bound connection except exceptConnID.
// Used for the join notice, which the joiner must not receive.
func (h *Hub) BroadcastExcept(groupID, exceptConnID, event string, data interface{}) {
	h.fanOut(groupID, exceptConnID, event, data)
}

func (h *Hub) fanOut(groupID, exceptConnID, event string, data interface{}) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[groupID]))
	for id, client := range h.groups[groupID] {
		if id == exceptConnID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	// Writes happen outside the index lock; a slow client must not stall
	// bind/unbind for the whole group.
	for _, client := range targets {
		if err := client.writer.WriteEvent(event, data); err != nil {
			h.log.Warn("broadcast delivery failed", "groupId", groupID, "event", event, "connId", client.ID, "error", err)
			continue
		}
		metricBroadcastsTotal.WithLabelValues(event).Inc()
	}
}

// BoundCount reports how many connections are bound to the group.
func (h *Hub) BoundCount(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[groupID])
}
