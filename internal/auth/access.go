package auth

import (
	"context"

	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/repository"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

// AccessChecker decides whether a principal may act within a workspace.
// Humans need a membership row; agents only reach their own workspace.
type AccessChecker struct {
	workspaces repository.WorkspaceRepository
	channels   repository.ChannelRepository
	handoffs   repository.HandoffRepository
	agents     repository.AgentRepository
}

// NewAccessChecker constructs an AccessChecker. agents is used to re-check
// long-lived agent sessions and may be nil.
func NewAccessChecker(workspaces repository.WorkspaceRepository, channels repository.ChannelRepository, handoffs repository.HandoffRepository, agents repository.AgentRepository) *AccessChecker {
	return &AccessChecker{workspaces: workspaces, channels: channels, handoffs: handoffs, agents: agents}
}

// CheckWorkspace returns nil when principal may access workspaceID and a
// Forbidden error otherwise.
func (a *AccessChecker) CheckWorkspace(ctx context.Context, principal *Principal, workspaceID string) error {
	switch {
	case principal.IsAgent():
		if principal.Agent.WorkspaceID == workspaceID {
			return nil
		}
		return apperrors.NewForbidden("agent does not belong to workspace")
	case principal.IsHuman():
		_, err := a.workspaces.GetMember(ctx, workspaceID, principal.Human.ID)
		if err == nil {
			return nil
		}
		if apperrors.IsNotFound(err) {
			return apperrors.NewForbidden("not a member of workspace")
		}
		return apperrors.MapError(err)
	default:
		return apperrors.NewUnauthenticated("authentication required")
	}
}

// CheckChannel loads the channel and checks its workspace.
func (a *AccessChecker) CheckChannel(ctx context.Context, principal *Principal, channelID string) (*domain.Channel, error) {
	channel, err := a.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "channel", map[string]any{"channel_id": channelID})
	}
	if err := a.CheckWorkspace(ctx, principal, channel.WorkspaceID); err != nil {
		return nil, err
	}
	return channel, nil
}

// CheckHandoff loads the handoff and checks its workspace.
func (a *AccessChecker) CheckHandoff(ctx context.Context, principal *Principal, handoffID string) (*domain.Handoff, error) {
	handoff, err := a.handoffs.GetByID(ctx, handoffID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "handoff", map[string]any{"handoff_id": handoffID})
	}
	if err := a.CheckWorkspace(ctx, principal, handoff.WorkspaceID); err != nil {
		return nil, err
	}
	return handoff, nil
}

// CheckRoom authorizes a realtime room subscription. Agent principals are
// reloaded first since the session may outlive a deactivation.
func (a *AccessChecker) CheckRoom(ctx context.Context, principal *Principal, kind domain.RoomKind, roomID string) error {
	if principal.IsAgent() && a.agents != nil {
		current, err := a.refreshAgent(ctx, principal.Agent.ID)
		if err != nil {
			return err
		}
		principal = current
	}
	switch kind {
	case domain.RoomChannel:
		_, err := a.CheckChannel(ctx, principal, roomID)
		return err
	case domain.RoomWorkspace:
		return a.CheckWorkspace(ctx, principal, roomID)
	default:
		return apperrors.NewValidationError("unknown room kind", map[string]any{"room_kind": kind})
	}
}

func (a *AccessChecker) refreshAgent(ctx context.Context, agentID string) (*Principal, error) {
	agent, err := a.agents.GetByID(ctx, agentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewForbidden("agent no longer exists")
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.IsActive {
		return nil, apperrors.NewForbidden("agent is deactivated")
	}
	return AgentPrincipal(agent), nil
}
