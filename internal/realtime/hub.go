package realtime

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/observability"
)

// ErrUnknownSession is returned when subscribing a session that is not registered.
var ErrUnknownSession = errors.New("realtime: unknown session")

// Registry tracks live sessions and their room interest, and fans events
// out to interested sessions only.
type Registry interface {
	Register(session *Session)
	Deregister(sessionID string)
	Subscribe(sessionID string, room Room) error
	Unsubscribe(sessionID string, room Room) error
	Publish(room Room, frame EventFrame) int
	SessionCount() int
}

const roomLockStripes = 64

// Hub is the in-process Registry.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*hubEntry
	rooms    map[Room]map[string]*Session

	// Publishes to the same room are serialised so every subscriber sees
	// them in call order.
	roomLocks [roomLockStripes]sync.Mutex

	logger  *zap.Logger
	metrics *observability.Metrics
}

type hubEntry struct {
	session *Session
	rooms   map[Room]struct{}
}

// NewHub constructs an empty hub. metrics may be nil.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[string]*hubEntry),
		rooms:    make(map[Room]map[string]*Session),
		logger:   logger.Named("realtime"),
		metrics:  metrics,
	}
}

// Register adds a session with no room interest.
func (h *Hub) Register(session *Session) {
	h.mu.Lock()
	if _, exists := h.sessions[session.ID()]; exists {
		h.mu.Unlock()
		return
	}
	h.sessions[session.ID()] = &hubEntry{session: session, rooms: make(map[Room]struct{})}
	h.mu.Unlock()

	h.metrics.SessionOpened()
	h.logger.Debug("session registered", zap.String("session_id", session.ID()))
}

// Deregister removes the session from every room and closes it.
func (h *Hub) Deregister(sessionID string) {
	h.mu.Lock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	for room := range entry.rooms {
		h.removeFromRoom(room, sessionID)
	}
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	entry.session.Close()
	h.metrics.SessionClosed()
	h.logger.Debug("session deregistered", zap.String("session_id", sessionID))
}

// Subscribe adds room to the session's interest set. Repeated calls are no-ops.
func (h *Hub) Subscribe(sessionID string, room Room) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	entry.rooms[room] = struct{}{}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		h.rooms[room] = members
	}
	members[sessionID] = entry.session
	return nil
}

// Unsubscribe removes room from the session's interest set.
func (h *Hub) Unsubscribe(sessionID string, room Room) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	delete(entry.rooms, room)
	h.removeFromRoom(room, sessionID)
	return nil
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(room Room, sessionID string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Publish delivers frame to every session currently subscribed to room and
// returns how many accepted it. Sessions that cannot take the frame right
// now are skipped.
func (h *Hub) Publish(room Room, frame EventFrame) int {
	lock := h.roomLock(room)
	lock.Lock()
	defer lock.Unlock()

	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Session, 0, len(members))
	for _, s := range members {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	h.metrics.EventPublished(string(room.Kind), frame.Type)
	if len(targets) == 0 {
		return 0
	}

	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("encode event frame", zap.String("room", room.String()), zap.Error(err))
		return 0
	}

	delivered := 0
	for _, s := range targets {
		if s.Enqueue(data) {
			delivered++
			continue
		}
		h.logger.Debug("skipped unwritable session",
			zap.String("room", room.String()),
			zap.String("session_id", s.ID()))
	}
	h.metrics.EventDelivered(string(room.Kind), delivered, len(targets)-delivered)
	return delivered
}

// DisconnectAgent deregisters every session opened by agentID and returns
// how many were closed.
func (h *Hub) DisconnectAgent(agentID string) int {
	h.mu.RLock()
	var ids []string
	for id, entry := range h.sessions {
		p := entry.session.Principal()
		if p != nil && p.IsAgent() && p.Agent.ID == agentID {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Deregister(id)
	}
	if len(ids) > 0 {
		h.logger.Info("agent sessions closed", zap.String("agent_id", agentID), zap.Int("sessions", len(ids)))
	}
	return len(ids)
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Rooms returns the rooms a session is subscribed to.
func (h *Hub) Rooms(sessionID string) []Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	rooms := make([]Room, 0, len(entry.rooms))
	for room := range entry.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// RoomSize returns the number of sessions subscribed to room.
func (h *Hub) RoomSize(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) roomLock(room Room) *sync.Mutex {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(room.String()))
	return &h.roomLocks[hasher.Sum32()%roomLockStripes]
}
