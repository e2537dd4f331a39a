package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/repository"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

const maxSlugLength = 48

// WorkspaceService manages workspaces and the channels, members and agents
// they own.
type WorkspaceService struct {
	workspaces repository.WorkspaceRepository
	humans     repository.HumanRepository
	channels   repository.ChannelRepository
	agents     repository.AgentRepository
	access     *auth.AccessChecker
	keyPrefix  string
	sessions   AgentSessions
	logger     *zap.Logger
}

// AgentSessions closes live realtime sessions of an agent.
type AgentSessions interface {
	DisconnectAgent(agentID string) int
}

// WorkspaceDependencies bundles repositories for the workspace service.
type WorkspaceDependencies struct {
	WorkspaceRepo  repository.WorkspaceRepository
	HumanRepo      repository.HumanRepository
	ChannelRepo    repository.ChannelRepository
	AgentRepo      repository.AgentRepository
	Access         *auth.AccessChecker
	AgentKeyPrefix string
	// Sessions, when set, has its sessions for an agent closed on deactivation.
	Sessions AgentSessions
	Logger   *zap.Logger
}

// ChannelInput describes channel creation.
type ChannelInput struct {
	Name        string
	Description string
	IsPrivate   bool
}

// NewWorkspaceService constructs the service.
func NewWorkspaceService(deps WorkspaceDependencies) *WorkspaceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceService{
		workspaces: deps.WorkspaceRepo,
		humans:     deps.HumanRepo,
		channels:   deps.ChannelRepo,
		agents:     deps.AgentRepo,
		access:     deps.Access,
		keyPrefix:  deps.AgentKeyPrefix,
		sessions:   deps.Sessions,
		logger:     logger.Named("workspace_service"),
	}
}

// Create makes a workspace owned by the calling human. An empty slug is
// derived from the name.
func (s *WorkspaceService) Create(ctx context.Context, principal *auth.Principal, name, wsSlug string) (*domain.Workspace, error) {
	if err := requireHuman(principal); err != nil {
		return nil, err
	}
	name, err := requiredText("name", name, 120)
	if err != nil {
		return nil, err
	}
	wsSlug = strings.TrimSpace(wsSlug)
	if wsSlug == "" {
		wsSlug = Slugify(name)
		if len(wsSlug) < 2 {
			wsSlug = "ws-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		}
	}
	if len(wsSlug) < 2 || len(wsSlug) > maxSlugLength || !slug.IsSlug(wsSlug) {
		return nil, apperrors.NewValidationError("invalid slug", map[string]any{"field": "slug", "slug": wsSlug})
	}

	workspace := &domain.Workspace{Name: name, Slug: wsSlug}
	if err := s.workspaces.CreateWithOwner(ctx, workspace, principal.Human.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("workspace created", zap.String("workspace_id", workspace.ID), zap.String("slug", wsSlug))
	return workspace, nil
}

// ListForPrincipal returns the workspaces the caller belongs to. An agent
// belongs to exactly its own.
func (s *WorkspaceService) ListForPrincipal(ctx context.Context, principal *auth.Principal) ([]domain.Workspace, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if principal.IsAgent() {
		workspace, err := s.workspaces.GetByID(ctx, principal.Agent.WorkspaceID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return []domain.Workspace{*workspace}, nil
	}
	workspaces, err := s.workspaces.ListForHuman(ctx, principal.Human.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return workspaces, nil
}

// Get loads a workspace the caller can access.
func (s *WorkspaceService) Get(ctx context.Context, principal *auth.Principal, workspaceID string) (*domain.Workspace, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	workspace, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "workspace", map[string]any{"workspace_id": workspaceID})
	}
	if err := s.access.CheckWorkspace(ctx, principal, workspace.ID); err != nil {
		return nil, err
	}
	return workspace, nil
}

// AddMember adds the human registered under email. Any member may invite.
func (s *WorkspaceService) AddMember(ctx context.Context, principal *auth.Principal, workspaceID, email string, role domain.MemberRole) (*domain.WorkspaceMember, error) {
	if err := requireHuman(principal); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, principal, workspaceID); err != nil {
		return nil, err
	}
	if role == "" {
		role = domain.MemberRoleMember
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role", "role": role})
	}

	human, err := s.humans.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "human", map[string]any{"email": email})
	}

	member := &domain.WorkspaceMember{WorkspaceID: workspaceID, HumanID: human.ID, Role: role}
	if err := s.workspaces.AddMember(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// ListChannels returns the workspace's channels.
func (s *WorkspaceService) ListChannels(ctx context.Context, principal *auth.Principal, workspaceID string) ([]domain.Channel, error) {
	if _, err := s.Get(ctx, principal, workspaceID); err != nil {
		return nil, err
	}
	channels, err := s.channels.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return channels, nil
}

// CreateChannel adds a channel to the workspace.
func (s *WorkspaceService) CreateChannel(ctx context.Context, principal *auth.Principal, workspaceID string, input ChannelInput) (*domain.Channel, error) {
	if _, err := s.Get(ctx, principal, workspaceID); err != nil {
		return nil, err
	}
	name, err := requiredText("name", input.Name, 80)
	if err != nil {
		return nil, err
	}
	description, err := optionalText("description", input.Description, 500)
	if err != nil {
		return nil, err
	}

	channel := &domain.Channel{
		WorkspaceID: workspaceID,
		Name:        name,
		Description: description,
		IsPrivate:   input.IsPrivate,
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, apperrors.MapError(err)
	}
	return channel, nil
}

// ListAgents returns the workspace's agents.
func (s *WorkspaceService) ListAgents(ctx context.Context, principal *auth.Principal, workspaceID string) ([]domain.Agent, error) {
	if _, err := s.Get(ctx, principal, workspaceID); err != nil {
		return nil, err
	}
	agents, err := s.agents.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// CreateAgent registers an agent and generates its key. The returned agent
// is the only place the key is ever exposed.
func (s *WorkspaceService) CreateAgent(ctx context.Context, principal *auth.Principal, workspaceID, name string) (*domain.Agent, error) {
	if err := requireHuman(principal); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, principal, workspaceID); err != nil {
		return nil, err
	}
	name, err := requiredText("name", name, 80)
	if err != nil {
		return nil, err
	}

	key, err := auth.GenerateAgentKey(s.keyPrefix)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	agent := &domain.Agent{WorkspaceID: workspaceID, Name: name, APIKey: key, IsActive: true}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("agent created", zap.String("agent_id", agent.ID), zap.String("workspace_id", workspaceID))
	return agent, nil
}

// SetAgentActive deactivates or reactivates an agent.
func (s *WorkspaceService) SetAgentActive(ctx context.Context, principal *auth.Principal, agentID string, active bool) (*domain.Agent, error) {
	if err := requireHuman(principal); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "agent", map[string]any{"agent_id": agentID})
	}
	if err := s.access.CheckWorkspace(ctx, principal, agent.WorkspaceID); err != nil {
		return nil, err
	}
	if err := s.agents.SetActive(ctx, agentID, active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	agent.IsActive = active
	s.logger.Info("agent activation changed", zap.String("agent_id", agentID), zap.Bool("active", active))
	if !active && s.sessions != nil {
		s.sessions.DisconnectAgent(agentID)
	}
	return agent, nil
}

// Slugify transliterates name to ASCII and joins its words with dashes.
func Slugify(name string) string {
	s := slug.Make(name)
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-_")
	}
	return s
}
