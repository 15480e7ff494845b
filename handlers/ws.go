package handlers

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"meetpoint/models"
	"meetpoint/services"
)

const writeTimeout = 10 * time.Second

// WSHandler is the event-channel endpoint. One goroutine per connection
// reads the inbound stream and hands every event to the session manager;
// a failing event is logged and dropped, never fatal to the connection.
type WSHandler struct {
	sessions *services.SessionManager
	log      *slog.Logger
}

func NewWSHandler(sessions *services.SessionManager) *WSHandler {
	return &WSHandler{sessions: sessions, log: slog.Default()}
}

// Upgrade is middleware that gates the websocket route and assigns the
// opaque connection reference used as identity everywhere else.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("connId", uuid.NewString())
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle runs the read loop for one connection.
func (h *WSHandler) Handle(c *websocket.Conn) {
	connID, _ := c.Locals("connId").(string)
	if connID == "" {
		connID = uuid.NewString()
	}

	client := services.NewClient(connID, newConnWriter(c))
	h.sessions.Open(client)
	services.ConnectionOpened()
	h.log.Debug("connection opened", "connId", connID)

	defer func() {
		// ReadMessage errors, client-initiated closes and transport
		// drops all funnel here; the session manager deduplicates.
		h.sessions.Disconnect(connID)
		services.ConnectionClosed()
		c.Close()
		h.log.Debug("connection closed", "connId", connID)
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(connID, msg)
	}
}

func (h *WSHandler) dispatch(connID string, msg []byte) {
	var env models.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.log.Warn("malformed envelope", "connId", connID, "error", err)
		return
	}
	services.InboundEvent(env.Event)

	var err error
	switch env.Event {
	case models.EventJoinGroup:
		var data models.JoinGroupData
		if err = json.Unmarshal(env.Data, &data); err == nil {
			err = h.sessions.Join(connID, data.Username, data.GroupID)
		}
	case models.EventLocationUpdate:
		var data models.LocationUpdateData
		if err = json.Unmarshal(env.Data, &data); err == nil {
			err = h.sessions.LocationUpdate(connID, data.Latitude, data.Longitude, data.ETA)
		}
	case models.EventRouteDeviation:
		var data models.RouteDeviationData
		if err = json.Unmarshal(env.Data, &data); err == nil {
			err = h.sessions.RouteDeviation(connID)
		}
	case models.EventDelayAlert:
		var data models.DelayAlertData
		if err = json.Unmarshal(env.Data, &data); err == nil {
			err = h.sessions.DelayAlert(connID, data.DelayMinutes)
		}
	case models.EventSetDestination:
		var data models.SetDestinationData
		if err = json.Unmarshal(env.Data, &data); err == nil {
			err = h.sessions.SetDestination(connID, data.GroupID, data.Latitude, data.Longitude, data.Address)
		}
	default:
		h.log.Warn("unknown event", "connId", connID, "event", env.Event)
		return
	}

	if err != nil {
		h.log.Warn("event dropped", "connId", connID, "event", env.Event, "error", err)
	}
}

// connWriter serializes writes to one websocket connection. Fan-outs
// from different groups may target the same connection concurrently and
// the underlying conn is not safe for parallel writes.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newConnWriter(c *websocket.Conn) *connWriter {
	return &connWriter{conn: c}
}

func (w *connWriter) WriteEvent(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteJSON(models.Envelope{Event: event, Data: payload})
}
