package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/TESCHEL/agenthq/internal/api/dto"
	"github.com/TESCHEL/agenthq/internal/service"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

// MemoryHandler exposes the calling agent's key/value memory.
type MemoryHandler struct {
	memory *service.MemoryService
	now    func() time.Time
}

// NewMemoryHandler constructs handler.
func NewMemoryHandler(memory *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{memory: memory, now: time.Now}
}

// Get handles GET /memory?key= for one entry and GET /memory?q= for an
// exact-or-prefix query.
func (h *MemoryHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if key := c.Query("key"); key != "" {
		entry, err := h.memory.Get(c.UserContext(), p, key)
		if err != nil {
			return err
		}
		return data(c, http.StatusOK, dto.NewMemoryResponse(entry))
	}

	items, err := h.memory.Query(c.UserContext(), p, c.Query("q"))
	if err != nil {
		return err
	}
	resp := make([]dto.MemoryResponse, 0, len(items))
	for i := range items {
		resp = append(resp, dto.NewMemoryResponse(&items[i]))
	}
	return data(c, http.StatusOK, resp)
}

// Set handles POST /memory.
func (h *MemoryHandler) Set(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SetMemoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	expiresAt := req.ExpiresAt
	if expiresAt == nil && req.TTLSeconds != nil {
		if *req.TTLSeconds <= 0 {
			return apperrors.NewValidationError("ttl_seconds must be positive", nil)
		}
		at := h.now().Add(time.Duration(*req.TTLSeconds) * time.Second)
		expiresAt = &at
	}
	entry, err := h.memory.Set(c.UserContext(), p, service.MemorySetInput{
		Key:       req.Key,
		Value:     req.Value,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewMemoryResponse(entry))
}

// Delete handles DELETE /memory with the key in the query or a JSON body.
// Deleting a missing key succeeds.
func (h *MemoryHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	key := c.Query("key")
	if key == "" && len(c.Body()) > 0 {
		var req dto.DeleteMemoryRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		key = req.Key
	}
	if err := h.memory.Delete(c.UserContext(), p, key); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
