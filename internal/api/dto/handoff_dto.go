package dto

import (
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
)

// CreateHandoffRequest payload. There is no status field: handoffs always
// start OPEN.
type CreateHandoffRequest struct {
	ChannelID   *string                `json:"channel_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    domain.HandoffPriority `json:"priority"`
	FromAgentID *string                `json:"from_agent_id"`
	ToHumanID   *string                `json:"to_human_id"`
}

// UpdateHandoffRequest payload.
type UpdateHandoffRequest struct {
	Status   *domain.HandoffStatus   `json:"status"`
	Priority *domain.HandoffPriority `json:"priority"`
}

// HandoffResponse has the same shape as the handoff event payloads.
type HandoffResponse = events.HandoffPayload
