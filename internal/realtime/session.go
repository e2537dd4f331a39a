package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/domain"
)

const defaultSendBuffer = 64

// Room is a fan-out target.
type Room struct {
	Kind domain.RoomKind
	ID   string
}

// ChannelRoom returns the room for a channel's messages.
func ChannelRoom(channelID string) Room { return Room{Kind: domain.RoomChannel, ID: channelID} }

// WorkspaceRoom returns the room for a workspace's handoffs.
func WorkspaceRoom(workspaceID string) Room { return Room{Kind: domain.RoomWorkspace, ID: workspaceID} }

func (r Room) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Session is one live realtime connection. Outbound frames are queued on a
// bounded buffer drained by the connection writer.
type Session struct {
	id        string
	principal *auth.Principal

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewSession builds a session. principal may be nil for connections whose
// handshake token did not resolve.
func NewSession(principal *auth.Principal, buffer int) *Session {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Session{
		id:        uuid.NewString(),
		principal: principal,
		send:      make(chan []byte, buffer),
	}
}

func (s *Session) ID() string { return s.id }

// Principal returns the identity established at connection time, if any.
func (s *Session) Principal() *auth.Principal { return s.principal }

// Outbound is closed once the session is closed.
func (s *Session) Outbound() <-chan []byte { return s.send }

// Enqueue queues frame without blocking. It reports false when the session
// is closed or its buffer is full.
func (s *Session) Enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops further delivery. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
