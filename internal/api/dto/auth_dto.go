package dto

import (
	"time"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// RegisterRequest payload for new humans.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HumanResponse is the public view of a human.
type HumanResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      HumanResponse `json:"user"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	Kind  domain.PrincipalKind `json:"kind"`
	Human *HumanResponse       `json:"human,omitempty"`
	Agent *AgentResponse       `json:"agent,omitempty"`
}

// NewHumanResponse maps a human.
func NewHumanResponse(h *domain.Human) HumanResponse {
	return HumanResponse{ID: h.ID, Name: h.Name, Email: h.Email, CreatedAt: h.CreatedAt}
}

// NewAuthResponse maps an issued token.
func NewAuthResponse(h *domain.Human, token *domain.Token) AuthResponse {
	return AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, User: NewHumanResponse(h)}
}
