package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TESCHEL/agenthq/internal/api/dto"
	"github.com/TESCHEL/agenthq/internal/service"
)

// AuthHandler exposes registration, login and identity endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	human, token, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewAuthResponse(human, token))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	human, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAuthResponse(human, token))
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	resp := dto.MeResponse{Kind: p.Kind}
	switch {
	case p.IsHuman():
		human := dto.NewHumanResponse(p.Human)
		resp.Human = &human
	case p.IsAgent():
		agent := dto.NewAgentResponse(p.Agent)
		resp.Agent = &agent
	}
	return data(c, http.StatusOK, resp)
}
