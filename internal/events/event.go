package events

import (
	"time"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMessageCreated EventType = "message.created"
	EventHandoffCreated EventType = "handoff.created"
	EventHandoffUpdated EventType = "handoff.updated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.AuthorType `json:"type"`
	ID   *string           `json:"id,omitempty"`
}

// ActorFromAuthor builds the actor for a message author.
func ActorFromAuthor(author domain.Author) Actor {
	switch a := author.(type) {
	case domain.HumanAuthor:
		return Actor{Type: domain.AuthorTypeHuman, ID: &a.HumanID}
	case domain.AgentAuthor:
		return Actor{Type: domain.AuthorTypeAgent, ID: &a.AgentID}
	default:
		return Actor{Type: domain.AuthorTypeSystem}
	}
}

// Event represents a domain event emitted by services after persistence.
// RoomKind and RoomID name the realtime room it targets.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	RoomKind  domain.RoomKind `json:"room_kind"`
	RoomID    string          `json:"room_id"`
	Actor     Actor           `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// MessagePayload is the body of message.created.
type MessagePayload struct {
	ID          string             `json:"id"`
	ChannelID   string             `json:"channel_id"`
	AuthorType  domain.AuthorType  `json:"author_type"`
	AuthorID    *string            `json:"author_id"`
	Content     string             `json:"content"`
	HTML        string             `json:"html,omitempty"`
	MessageType domain.MessageType `json:"message_type"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewMessagePayload copies msg into its wire shape. html is the rendered
// markdown body, empty for other message types.
func NewMessagePayload(msg *domain.Message, html string) MessagePayload {
	return MessagePayload{
		ID:          msg.ID,
		ChannelID:   msg.ChannelID,
		AuthorType:  msg.AuthorType,
		AuthorID:    msg.AuthorID,
		Content:     msg.Content,
		HTML:        html,
		MessageType: msg.MessageType,
		CreatedAt:   msg.CreatedAt,
	}
}

// HandoffPayload is the body of handoff.created and handoff.updated.
// PreviousStatus is only set on updates.
type HandoffPayload struct {
	ID             string                 `json:"id"`
	WorkspaceID    string                 `json:"workspace_id"`
	ChannelID      *string                `json:"channel_id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Status         domain.HandoffStatus   `json:"status"`
	PreviousStatus *domain.HandoffStatus  `json:"previous_status,omitempty"`
	Priority       domain.HandoffPriority `json:"priority"`
	FromAgentID    *string                `json:"from_agent_id"`
	ToHumanID      *string                `json:"to_human_id"`
	ResolvedAt     *time.Time             `json:"resolved_at"`
	CreatedAt      time.Time              `json:"created_at"`
}

// NewHandoffPayload copies h into its wire shape.
func NewHandoffPayload(h *domain.Handoff) HandoffPayload {
	return HandoffPayload{
		ID:          h.ID,
		WorkspaceID: h.WorkspaceID,
		ChannelID:   h.ChannelID,
		Title:       h.Title,
		Description: h.Description,
		Status:      h.Status,
		Priority:    h.Priority,
		FromAgentID: h.FromAgentID,
		ToHumanID:   h.ToHumanID,
		ResolvedAt:  h.ResolvedAt,
		CreatedAt:   h.CreatedAt,
	}
}
