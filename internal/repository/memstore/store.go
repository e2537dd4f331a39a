// Package memstore is an in-memory implementation of the repository
// interfaces. It backs tests and runs without a Postgres DSN.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/repository"
)

// Store holds every table behind one lock.
type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	humans     map[string]*domain.Human
	workspaces map[string]*domain.Workspace
	members    map[memberKey]*domain.WorkspaceMember
	agents     map[string]*domain.Agent
	channels   map[string]*domain.Channel
	messages   map[string][]*domain.Message // keyed by channel ID, insertion order
	handoffs   map[string]*domain.Handoff
	memories   map[memoryKey]*domain.Memory
}

type memberKey struct{ workspaceID, humanID string }

type memoryKey struct{ agentID, key string }

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:        time.Now,
		humans:     make(map[string]*domain.Human),
		workspaces: make(map[string]*domain.Workspace),
		members:    make(map[memberKey]*domain.WorkspaceMember),
		agents:     make(map[string]*domain.Agent),
		channels:   make(map[string]*domain.Channel),
		messages:   make(map[string][]*domain.Message),
		handoffs:   make(map[string]*domain.Handoff),
		memories:   make(map[memoryKey]*domain.Memory),
	}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Repositories bundles the per-entity views of the store.
type Repositories = repository.Repositories

// Repositories returns repository views sharing this store.
func (s *Store) Repositories() Repositories {
	return Repositories{
		Humans:     &humanRepo{s},
		Workspaces: &workspaceRepo{s},
		Agents:     &agentRepo{s},
		Channels:   &channelRepo{s},
		Messages:   &messageRepo{s},
		Handoffs:   &handoffRepo{s},
		Memories:   &memoryRepo{s},
	}
}

func newID() string {
	return uuid.NewString()
}
