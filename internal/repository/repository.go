package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Page sizes for list queries.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ErrStatusChanged is returned by conditional updates when the row no longer
// holds the expected status.
var ErrStatusChanged = errors.New("status changed concurrently")

// Repositories bundles one implementation of every repository.
type Repositories struct {
	Humans     HumanRepository
	Workspaces WorkspaceRepository
	Agents     AgentRepository
	Channels   ChannelRepository
	Messages   MessageRepository
	Handoffs   HandoffRepository
	Memories   MemoryRepository
}

// NewRepositories returns the Postgres-backed repositories.
func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Humans:     NewHumanRepository(pool),
		Workspaces: NewWorkspaceRepository(pool),
		Agents:     NewAgentRepository(pool),
		Channels:   NewChannelRepository(pool),
		Messages:   NewMessageRepository(pool),
		Handoffs:   NewHandoffRepository(pool),
		Memories:   NewMemoryRepository(pool),
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	return clampLimit(limit)
}
