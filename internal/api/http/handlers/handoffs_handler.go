package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TESCHEL/agenthq/internal/api/dto"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
	"github.com/TESCHEL/agenthq/internal/service"
)

// HandoffsHandler exposes handoff listing, creation and updates.
type HandoffsHandler struct {
	handoffs *service.HandoffService
}

// NewHandoffsHandler constructs handler.
func NewHandoffsHandler(handoffs *service.HandoffService) *HandoffsHandler {
	return &HandoffsHandler{handoffs: handoffs}
}

// List handles GET /workspaces/:id/handoffs?status=.
func (h *HandoffsHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var status *domain.HandoffStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.HandoffStatus(raw)
		status = &s
	}
	items, err := h.handoffs.List(c.UserContext(), p, c.Params("id"), status)
	if err != nil {
		return err
	}
	resp := make([]dto.HandoffResponse, 0, len(items))
	for i := range items {
		resp = append(resp, events.NewHandoffPayload(&items[i]))
	}
	return data(c, http.StatusOK, resp)
}

// Get handles GET /handoffs/:id.
func (h *HandoffsHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	handoff, err := h.handoffs.Get(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, events.NewHandoffPayload(handoff))
}

// Create handles POST /workspaces/:id/handoffs.
func (h *HandoffsHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateHandoffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	handoff, err := h.handoffs.Create(c.UserContext(), p, c.Params("id"), service.HandoffCreateInput{
		ChannelID:   req.ChannelID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		FromAgentID: req.FromAgentID,
		ToHumanID:   req.ToHumanID,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, events.NewHandoffPayload(handoff))
}

// Update handles PATCH /handoffs/:id.
func (h *HandoffsHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateHandoffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	handoff, err := h.handoffs.Update(c.UserContext(), p, c.Params("id"), service.HandoffUpdateInput{
		Status:   req.Status,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, events.NewHandoffPayload(handoff))
}
