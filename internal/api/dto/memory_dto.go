package dto

import (
	"encoding/json"
	"time"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// SetMemoryRequest payload. ExpiresAt wins over TTLSeconds when both are set.
type SetMemoryRequest struct {
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	ExpiresAt  *time.Time      `json:"expires_at"`
	TTLSeconds *int            `json:"ttl_seconds"`
}

// DeleteMemoryRequest payload, used when the key is not in the query.
type DeleteMemoryRequest struct {
	Key string `json:"key"`
}

// MemoryResponse view.
type MemoryResponse struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt *time.Time      `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewMemoryResponse(m *domain.Memory) MemoryResponse {
	return MemoryResponse{
		ID:        m.ID,
		Key:       m.Key,
		Value:     m.Value,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
