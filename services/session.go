package services

import (
	"fmt"
	"log/slog"
	"sync"

	"meetpoint/models"
)

type sessionState int

const (
	stateUnbound sessionState = iota
	stateBound
	stateClosed
)

// session is the per-connection record. A connection starts Unbound,
// becomes Bound on a successful join and ends Closed exactly once, no
// matter how many close signals the transport delivers.
type session struct {
	client   *Client
	username string
	groupID  string
	state    sessionState
}

// SessionManager binds live connections to presence records and drives
// the join/leave lifecycle. It is the only writer of the session table,
// keyed by connection identity.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session

	registry     *Registry
	presences    *PresenceStore
	destinations *Destinations
	hub          *Hub
	activity     *ActivityLog
	locks        *GroupLocks
	log          *slog.Logger
}

func NewSessionManager(registry *Registry, presences *PresenceStore, destinations *Destinations, hub *Hub, activity *ActivityLog, locks *GroupLocks) *SessionManager {
	return &SessionManager{
		sessions:     make(map[string]*session),
		registry:     registry,
		presences:    presences,
		destinations: destinations,
		hub:          hub,
		activity:     activity,
		locks:        locks,
		log:          slog.Default(),
	}
}

// Open registers a fresh, still unbound connection.
func (m *SessionManager) Open(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[client.ID] = &session{client: client, state: stateUnbound}
}

// Join moves the connection from Unbound to Bound: it resolves or
// creates the presence, delivers the full group snapshot to the joiner,
// announces the join to the rest of the group and, when the presence
// already carries a last known location, replays it group-wide so peers
// of a reconnecting member re-synchronize immediately.
//
// A join for a nonexistent group leaves the connection Unbound; the
// client may retry with another group.
func (m *SessionManager) Join(connID, username, groupID string) error {
	if username == "" || groupID == "" {
		return fmt.Errorf("%w: username and groupId are required", ErrValidation)
	}

	m.mu.Lock()
	sess, ok := m.sessions[connID]
	if !ok || sess.state == stateClosed {
		m.mu.Unlock()
		return fmt.Errorf("%w: connection %s is closed", ErrNotFound, connID)
	}
	if sess.state == stateBound {
		m.mu.Unlock()
		return fmt.Errorf("%w: connection already bound to group %s", ErrConflict, sess.groupID)
	}
	client := sess.client
	m.mu.Unlock()

	m.locks.Lock(groupID)

	group, err := m.registry.FindGroup(groupID)
	if err != nil {
		m.locks.Unlock(groupID)
		return err
	}

	presence, err := m.presences.Upsert(username, groupID, connID)
	if err != nil {
		m.locks.Unlock(groupID)
		return err
	}

	online, err := m.presences.ListOnline(groupID)
	if err != nil {
		m.locks.Unlock(groupID)
		return err
	}

	m.hub.Bind(groupID, client)

	m.mu.Lock()
	// Re-check: the transport may have fired a close while we were at
	// the store. The disconnect path already unbinds in that case.
	if sess.state == stateClosed {
		m.mu.Unlock()
		m.hub.Unbind(groupID, connID)
		m.locks.Unlock(groupID)
		return fmt.Errorf("%w: connection %s closed during join", ErrNotFound, connID)
	}
	sess.username = username
	sess.groupID = groupID
	sess.state = stateBound
	m.mu.Unlock()

	m.locks.Unlock(groupID)

	members := make([]models.PresenceResponse, 0, len(online))
	for i := range online {
		members = append(members, online[i].ToResponse())
	}
	snapshot := models.GroupState{
		Group:       group,
		Members:     members,
		Destination: group.Destination,
	}
	if err := client.Send(models.EventGroupState, snapshot); err != nil {
		m.log.Warn("snapshot delivery failed", "connId", connID, "username", username, "error", err)
	}

	m.hub.BroadcastExcept(groupID, connID, models.EventUserJoined, models.UserJoinedData{
		Username: username,
		GroupID:  groupID,
	})

	// A rejoin after a reconnect replays the last known position so the
	// rest of the group catches up without waiting for the next update.
	if presence.HasLocation() {
		loc := models.MemberLocationData{
			Username:  presence.Username,
			Latitude:  *presence.Latitude,
			Longitude: *presence.Longitude,
			ETA:       presence.ETA,
		}
		if presence.LocationAt != nil {
			loc.Timestamp = *presence.LocationAt
		}
		m.hub.Broadcast(groupID, models.EventMemberLocationUpdate, loc)
	}

	m.log.Info("member joined", "username", username, "groupId", groupID, "connId", connID)
	return nil
}

// LocationUpdate applies a position report and fans it out group-wide.
// Updates from a connection that never joined are dropped: logged, no
// mutation, no broadcast.
func (m *SessionManager) LocationUpdate(connID string, lat, lng float64, eta *int) error {
	sess, bound := m.bound(connID)
	if !bound {
		m.log.Warn("location update from unbound connection", "connId", connID)
		return nil
	}

	m.locks.Lock(sess.groupID)
	presence, err := m.presences.UpdateLocation(sess.username, sess.groupID, lat, lng, eta)
	m.locks.Unlock(sess.groupID)
	if err != nil {
		return err
	}

	loc := models.MemberLocationData{
		Username:  sess.username,
		Latitude:  lat,
		Longitude: lng,
		ETA:       eta,
	}
	if presence.LocationAt != nil {
		loc.Timestamp = *presence.LocationAt
	}
	m.hub.Broadcast(sess.groupID, models.EventMemberLocationUpdate, loc)
	return nil
}

// RouteDeviation flags the member as off-route and alerts the group.
// The session lifecycle is untouched.
func (m *SessionManager) RouteDeviation(connID string) error {
	sess, bound := m.bound(connID)
	if !bound {
		m.log.Warn("route deviation from unbound connection", "connId", connID)
		return nil
	}

	m.locks.Lock(sess.groupID)
	_, err := m.presences.MarkDeviated(sess.username, sess.groupID)
	m.locks.Unlock(sess.groupID)
	if err != nil {
		return err
	}

	m.activity.Record(sess.groupID, sess.username, models.ActivityRouteDeviation, "")
	m.hub.Broadcast(sess.groupID, models.EventAlert, models.AlertData{
		Type:     models.AlertRouteDeviation,
		Message:  fmt.Sprintf("%s has taken a different route!", sess.username),
		Username: sess.username,
	})
	return nil
}

// DelayAlert relays a delay estimate to the group. Stateless: nothing is
// persisted beyond the activity feed.
func (m *SessionManager) DelayAlert(connID string, delayMinutes int) error {
	sess, bound := m.bound(connID)
	if !bound {
		m.log.Warn("delay alert from unbound connection", "connId", connID)
		return nil
	}

	m.presences.Touch(connID)
	m.activity.Record(sess.groupID, sess.username, models.ActivityDelayReported, fmt.Sprintf("%d min", delayMinutes))
	m.hub.Broadcast(sess.groupID, models.EventAlert, models.AlertData{
		Type:         models.AlertDelay,
		Message:      fmt.Sprintf("%s is delayed by approximately %d minutes", sess.username, delayMinutes),
		Username:     sess.username,
		DelayMinutes: &delayMinutes,
	})
	return nil
}

// SetDestination relays an event-channel destination change. The mutation
// and fan-out go through the same Destinations path as the control plane.
func (m *SessionManager) SetDestination(connID, groupID string, lat, lng float64, address string) error {
	if groupID == "" {
		if sess, bound := m.bound(connID); bound {
			groupID = sess.groupID
		} else {
			return fmt.Errorf("%w: groupId is required", ErrValidation)
		}
	}
	m.presences.Touch(connID)
	_, err := m.destinations.Set(groupID, lat, lng, address)
	return err
}

// Disconnect moves the connection to Closed and, when it was bound,
// releases the presence and tells the group. The transition runs exactly
// once per connection identity: transports that report closure through
// more than one signal path hit a no-op the second time.
func (m *SessionManager) Disconnect(connID string) {
	m.mu.Lock()
	sess, ok := m.sessions[connID]
	if !ok || sess.state == stateClosed {
		m.mu.Unlock()
		return
	}
	wasBound := sess.state == stateBound
	sess.state = stateClosed
	delete(m.sessions, connID)
	m.mu.Unlock()

	if !wasBound {
		return
	}

	m.locks.Lock(sess.groupID)
	m.hub.Unbind(sess.groupID, connID)
	presence, err := m.presences.SetOffline(connID)
	m.locks.Unlock(sess.groupID)
	if err != nil {
		m.log.Error("set offline failed", "connId", connID, "error", err)
		return
	}

	// presence is nil when a reconnect already took ownership of the
	// identity; the newer connection speaks for the member now.
	if presence != nil {
		m.hub.Broadcast(sess.groupID, models.EventUserLeft, models.UserLeftData{Username: presence.Username})
		m.log.Info("member left", "username", presence.Username, "groupId", sess.groupID)
	}
}

// Touch refreshes liveness for the presence owning connID.
func (m *SessionManager) Touch(connID string) {
	m.presences.Touch(connID)
}

// bound returns a copy of the session if the connection is currently
// Bound.
func (m *SessionManager) bound(connID string) (session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[connID]
	if !ok || sess.state != stateBound {
		return session{}, false
	}
	return *sess, true
}
