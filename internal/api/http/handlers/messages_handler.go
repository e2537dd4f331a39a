package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TESCHEL/agenthq/internal/api/dto"
	"github.com/TESCHEL/agenthq/internal/events"
	"github.com/TESCHEL/agenthq/internal/service"
)

// MessagesHandler exposes channel message history and posting.
type MessagesHandler struct {
	messages *service.MessageService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messages *service.MessageService) *MessagesHandler {
	return &MessagesHandler{messages: messages}
}

// List handles GET /channels/:id/messages?limit=&before=.
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	items, err := h.messages.List(c.UserContext(), p, c.Params("id"), limit, c.Query("before"))
	if err != nil {
		return err
	}
	resp := make([]dto.MessageResponse, 0, len(items))
	for i := range items {
		resp = append(resp, events.NewMessagePayload(&items[i], h.messages.Render(&items[i])))
	}
	return data(c, http.StatusOK, resp)
}

// Send handles POST /channels/:id/messages.
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.messages.Send(c.UserContext(), p, c.Params("id"), req.Content, req.MessageType)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, events.NewMessagePayload(msg, h.messages.Render(msg)))
}
