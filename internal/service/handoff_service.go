package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
	"github.com/TESCHEL/agenthq/internal/repository"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

// HandoffService manages agent-to-human handoffs.
type HandoffService struct {
	handoffs   repository.HandoffRepository
	workspaces repository.WorkspaceRepository
	channels   repository.ChannelRepository
	agents     repository.AgentRepository
	access     *auth.AccessChecker
	messages   *MessageService
	events     publisher
	now        Clock
	logger     *zap.Logger
}

// HandoffDependencies bundles collaborators for the handoff service.
type HandoffDependencies struct {
	HandoffRepo   repository.HandoffRepository
	WorkspaceRepo repository.WorkspaceRepository
	ChannelRepo   repository.ChannelRepository
	AgentRepo     repository.AgentRepository
	Access        *auth.AccessChecker
	// Messages, when set, receives a system note in the handoff's channel.
	Messages   *MessageService
	Dispatcher events.Dispatcher
	Clock      Clock
	Logger     *zap.Logger
}

// HandoffCreateInput describes handoff creation. Status is not accepted:
// every handoff starts OPEN.
type HandoffCreateInput struct {
	ChannelID   *string
	Title       string
	Description string
	Priority    domain.HandoffPriority
	FromAgentID *string
	ToHumanID   *string
}

// HandoffUpdateInput carries optional changes. At least one must be set.
type HandoffUpdateInput struct {
	Status   *domain.HandoffStatus
	Priority *domain.HandoffPriority
}

// NewHandoffService constructs the service.
func NewHandoffService(deps HandoffDependencies) *HandoffService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := clockOrNow(deps.Clock)
	return &HandoffService{
		handoffs:   deps.HandoffRepo,
		workspaces: deps.WorkspaceRepo,
		channels:   deps.ChannelRepo,
		agents:     deps.AgentRepo,
		access:     deps.Access,
		messages:   deps.Messages,
		events:     publisher{dispatcher: deps.Dispatcher, now: now},
		now:        now,
		logger:     logger.Named("handoff_service"),
	}
}

// List returns the workspace's handoffs, newest first, optionally filtered by status.
func (s *HandoffService) List(ctx context.Context, principal *auth.Principal, workspaceID string, status *domain.HandoffStatus) ([]domain.Handoff, error) {
	if err := s.checkWorkspace(ctx, principal, workspaceID); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"field": "status", "status": *status})
	}
	handoffs, err := s.handoffs.ListByWorkspace(ctx, workspaceID, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return handoffs, nil
}

// Get loads a single handoff.
func (s *HandoffService) Get(ctx context.Context, principal *auth.Principal, handoffID string) (*domain.Handoff, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	return s.access.CheckHandoff(ctx, principal, handoffID)
}

// Create opens a handoff in the workspace.
func (s *HandoffService) Create(ctx context.Context, principal *auth.Principal, workspaceID string, input HandoffCreateInput) (*domain.Handoff, error) {
	if err := s.checkWorkspace(ctx, principal, workspaceID); err != nil {
		return nil, err
	}
	title, err := requiredText("title", input.Title, 200)
	if err != nil {
		return nil, err
	}
	description, err := optionalText("description", input.Description, 5000)
	if err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.HandoffPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "priority": priority})
	}

	handoff := &domain.Handoff{
		WorkspaceID: workspaceID,
		Title:       title,
		Description: description,
		Status:      domain.HandoffStatusOpen,
		Priority:    priority,
	}
	if handoff.ChannelID, err = s.resolveChannel(ctx, workspaceID, input.ChannelID); err != nil {
		return nil, err
	}
	if handoff.FromAgentID, err = s.resolveFromAgent(ctx, principal, workspaceID, input.FromAgentID); err != nil {
		return nil, err
	}
	if handoff.ToHumanID, err = s.resolveToHuman(ctx, workspaceID, input.ToHumanID); err != nil {
		return nil, err
	}

	if err := s.handoffs.Create(ctx, handoff); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("handoff created",
		zap.String("handoff_id", handoff.ID),
		zap.String("workspace_id", workspaceID),
		zap.String("priority", string(priority)))

	s.events.publish(ctx, events.Event{
		Type:     events.EventHandoffCreated,
		RoomKind: domain.RoomWorkspace,
		RoomID:   workspaceID,
		Actor:    actorFor(principal),
		Payload:  events.NewHandoffPayload(handoff),
	})
	s.note(ctx, handoff, fmt.Sprintf("Handoff opened: %s (%s)", handoff.Title, handoff.Priority))
	return handoff, nil
}

// Update applies a status transition and/or a priority change in a single
// write. Errors are reported in order: not found, forbidden, invalid
// transition. Nothing is persisted or announced on failure.
func (s *HandoffService) Update(ctx context.Context, principal *auth.Principal, handoffID string, input HandoffUpdateInput) (*domain.Handoff, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if input.Status == nil && input.Priority == nil {
		return nil, apperrors.NewValidationError("nothing to update", map[string]any{"fields": []string{"status", "priority"}})
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"field": "status", "status": *input.Status})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "priority": *input.Priority})
	}

	handoff, err := s.access.CheckHandoff(ctx, principal, handoffID)
	if err != nil {
		return nil, err
	}
	previous := handoff.Status

	if input.Status != nil {
		if err := handoff.Transition(*input.Status, s.now()); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if input.Priority != nil {
		handoff.Priority = *input.Priority
	}

	switch {
	case input.Status != nil && input.Priority != nil:
		err = s.handoffs.UpdateStatusAndPriority(ctx, handoff.ID, previous, handoff.Status, handoff.ResolvedAt, handoff.Priority)
	case input.Status != nil:
		err = s.handoffs.UpdateStatus(ctx, handoff.ID, previous, handoff.Status, handoff.ResolvedAt)
	default:
		if err := s.handoffs.UpdatePriority(ctx, handoff.ID, handoff.Priority); err != nil {
			return nil, apperrors.NotFoundOr(err, "handoff", map[string]any{"handoff_id": handoffID})
		}
	}
	if err != nil {
		return nil, s.statusConflict(ctx, handoff.ID, *input.Status, err)
	}

	payload := events.NewHandoffPayload(handoff)
	if handoff.Status != previous {
		payload.PreviousStatus = &previous
	}
	s.events.publish(ctx, events.Event{
		Type:     events.EventHandoffUpdated,
		RoomKind: domain.RoomWorkspace,
		RoomID:   handoff.WorkspaceID,
		Actor:    actorFor(principal),
		Payload:  payload,
	})
	if handoff.Status != previous {
		s.logger.Info("handoff transitioned",
			zap.String("handoff_id", handoff.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(handoff.Status)))
		s.note(ctx, handoff, fmt.Sprintf("Handoff %q moved to %s", handoff.Title, handoff.Status))
	}
	return handoff, nil
}

// UpdateStatus is Update with only a status change.
func (s *HandoffService) UpdateStatus(ctx context.Context, principal *auth.Principal, handoffID string, status domain.HandoffStatus) (*domain.Handoff, error) {
	return s.Update(ctx, principal, handoffID, HandoffUpdateInput{Status: &status})
}

// statusConflict reports a lost race on the conditional update as an
// invalid transition from whatever status won.
func (s *HandoffService) statusConflict(ctx context.Context, handoffID string, requested domain.HandoffStatus, err error) error {
	if !errors.Is(err, repository.ErrStatusChanged) {
		return apperrors.NotFoundOr(err, "handoff", map[string]any{"handoff_id": handoffID})
	}
	current, loadErr := s.handoffs.GetByID(ctx, handoffID)
	if loadErr != nil {
		return apperrors.NotFoundOr(loadErr, "handoff", map[string]any{"handoff_id": handoffID})
	}
	return apperrors.NewInvalidTransition(&domain.InvalidTransitionError{Current: current.Status, Requested: requested})
}

func (s *HandoffService) checkWorkspace(ctx context.Context, principal *auth.Principal, workspaceID string) error {
	if err := requirePrincipal(principal); err != nil {
		return err
	}
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return apperrors.NotFoundOr(err, "workspace", map[string]any{"workspace_id": workspaceID})
	}
	return s.access.CheckWorkspace(ctx, principal, workspaceID)
}

func (s *HandoffService) resolveChannel(ctx context.Context, workspaceID string, channelID *string) (*string, error) {
	if channelID == nil || strings.TrimSpace(*channelID) == "" {
		return nil, nil
	}
	channel, err := s.channels.GetByID(ctx, *channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown channel", map[string]any{"field": "channel_id"})
		}
		return nil, apperrors.MapError(err)
	}
	if channel.WorkspaceID != workspaceID {
		return nil, apperrors.NewValidationError("channel belongs to another workspace", map[string]any{"field": "channel_id"})
	}
	return &channel.ID, nil
}

// resolveFromAgent defaults to the calling agent.
func (s *HandoffService) resolveFromAgent(ctx context.Context, principal *auth.Principal, workspaceID string, agentID *string) (*string, error) {
	if agentID == nil || strings.TrimSpace(*agentID) == "" {
		if principal.IsAgent() {
			id := principal.Agent.ID
			return &id, nil
		}
		return nil, nil
	}
	agent, err := s.agents.GetByID(ctx, *agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown agent", map[string]any{"field": "from_agent_id"})
		}
		return nil, apperrors.MapError(err)
	}
	if agent.WorkspaceID != workspaceID {
		return nil, apperrors.NewValidationError("agent belongs to another workspace", map[string]any{"field": "from_agent_id"})
	}
	return &agent.ID, nil
}

func (s *HandoffService) resolveToHuman(ctx context.Context, workspaceID string, humanID *string) (*string, error) {
	if humanID == nil || strings.TrimSpace(*humanID) == "" {
		return nil, nil
	}
	if _, err := s.workspaces.GetMember(ctx, workspaceID, *humanID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assignee is not a workspace member", map[string]any{"field": "to_human_id"})
		}
		return nil, apperrors.MapError(err)
	}
	id := *humanID
	return &id, nil
}

// note posts a best-effort system message to the handoff's channel.
func (s *HandoffService) note(ctx context.Context, handoff *domain.Handoff, content string) {
	if s.messages == nil || handoff.ChannelID == nil {
		return
	}
	if _, err := s.messages.PostSystem(ctx, *handoff.ChannelID, content); err != nil {
		s.logger.Warn("handoff note failed", zap.String("handoff_id", handoff.ID), zap.Error(err))
	}
}
