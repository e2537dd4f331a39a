package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TESCHEL/agenthq/internal/api/dto"
	"github.com/TESCHEL/agenthq/internal/service"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

// WorkspacesHandler exposes workspaces and the channels, members and agents
// they own.
type WorkspacesHandler struct {
	workspaces *service.WorkspaceService
}

// NewWorkspacesHandler constructs handler.
func NewWorkspacesHandler(workspaces *service.WorkspaceService) *WorkspacesHandler {
	return &WorkspacesHandler{workspaces: workspaces}
}

// List handles GET /workspaces.
func (h *WorkspacesHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.workspaces.ListForPrincipal(c.UserContext(), p)
	if err != nil {
		return err
	}
	resp := make([]dto.WorkspaceResponse, 0, len(items))
	for i := range items {
		resp = append(resp, dto.NewWorkspaceResponse(&items[i]))
	}
	return data(c, http.StatusOK, resp)
}

// Create handles POST /workspaces.
func (h *WorkspacesHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateWorkspaceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ws, err := h.workspaces.Create(c.UserContext(), p, req.Name, req.Slug)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewWorkspaceResponse(ws))
}

// Get handles GET /workspaces/:id.
func (h *WorkspacesHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ws, err := h.workspaces.Get(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewWorkspaceResponse(ws))
}

// AddMember handles POST /workspaces/:id/members.
func (h *WorkspacesHandler) AddMember(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.AddMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	member, err := h.workspaces.AddMember(c.UserContext(), p, c.Params("id"), req.Email, req.Role)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewMemberResponse(member))
}

// ListChannels handles GET /workspaces/:id/channels.
func (h *WorkspacesHandler) ListChannels(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.workspaces.ListChannels(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.ChannelResponse, 0, len(items))
	for i := range items {
		resp = append(resp, dto.NewChannelResponse(&items[i]))
	}
	return data(c, http.StatusOK, resp)
}

// CreateChannel handles POST /workspaces/:id/channels.
func (h *WorkspacesHandler) CreateChannel(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateChannelRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ch, err := h.workspaces.CreateChannel(c.UserContext(), p, c.Params("id"), service.ChannelInput{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewChannelResponse(ch))
}

// ListAgents handles GET /workspaces/:id/agents.
func (h *WorkspacesHandler) ListAgents(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.workspaces.ListAgents(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.AgentResponse, 0, len(items))
	for i := range items {
		resp = append(resp, dto.NewAgentResponse(&items[i]))
	}
	return data(c, http.StatusOK, resp)
}

// CreateAgent handles POST /workspaces/:id/agents. The key is only ever
// returned here.
func (h *WorkspacesHandler) CreateAgent(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateAgentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	agent, err := h.workspaces.CreateAgent(c.UserContext(), p, c.Params("id"), req.Name)
	if err != nil {
		return err
	}
	resp := dto.NewAgentResponse(agent)
	resp.APIKey = agent.APIKey
	return data(c, http.StatusCreated, resp)
}

// UpdateAgent handles PATCH /agents/:id.
func (h *WorkspacesHandler) UpdateAgent(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAgentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.IsActive == nil {
		return apperrors.NewValidationError("is_active is required", nil)
	}
	agent, err := h.workspaces.SetAgentActive(c.UserContext(), p, c.Params("id"), *req.IsActive)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAgentResponse(agent))
}
