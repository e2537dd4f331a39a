package dto

import (
	"time"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// CreateWorkspaceRequest payload. Slug is derived from Name when empty.
type CreateWorkspaceRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// AddMemberRequest payload.
type AddMemberRequest struct {
	Email string            `json:"email"`
	Role  domain.MemberRole `json:"role"`
}

// CreateChannelRequest payload.
type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name string `json:"name"`
}

// UpdateAgentRequest payload.
type UpdateAgentRequest struct {
	IsActive *bool `json:"is_active"`
}

// WorkspaceResponse view.
type WorkspaceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberResponse view.
type MemberResponse struct {
	WorkspaceID string            `json:"workspace_id"`
	HumanID     string            `json:"human_id"`
	Role        domain.MemberRole `json:"role"`
	JoinedAt    time.Time         `json:"joined_at"`
}

// ChannelResponse view.
type ChannelResponse struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

// AgentResponse view. APIKey is only populated on creation.
type AgentResponse struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	CreatedAt   time.Time  `json:"created_at"`
	APIKey      string     `json:"api_key,omitempty"`
}

func NewWorkspaceResponse(w *domain.Workspace) WorkspaceResponse {
	return WorkspaceResponse{ID: w.ID, Name: w.Name, Slug: w.Slug, CreatedAt: w.CreatedAt}
}

func NewMemberResponse(m *domain.WorkspaceMember) MemberResponse {
	return MemberResponse{WorkspaceID: m.WorkspaceID, HumanID: m.HumanID, Role: m.Role, JoinedAt: m.JoinedAt}
}

func NewChannelResponse(ch *domain.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          ch.ID,
		WorkspaceID: ch.WorkspaceID,
		Name:        ch.Name,
		Description: ch.Description,
		IsPrivate:   ch.IsPrivate,
		CreatedAt:   ch.CreatedAt,
	}
}

// NewAgentResponse maps an agent without its key.
func NewAgentResponse(a *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:          a.ID,
		WorkspaceID: a.WorkspaceID,
		Name:        a.Name,
		IsActive:    a.IsActive,
		LastSeenAt:  a.LastSeenAt,
		CreatedAt:   a.CreatedAt,
	}
}
