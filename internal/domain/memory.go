package domain

import (
	"encoding/json"
	"time"
)

// Memory is a per-agent key-value entry. (AgentID, Key) is unique.
type Memory struct {
	ID        string
	AgentID   string
	Key       string
	Value     json.RawMessage
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (m *Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}
