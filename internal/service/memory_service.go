package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/repository"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

const (
	maxMemoryKeyLength = 255
	maxMemoryValueSize = 64 << 10
)

// MemoryService is the calling agent's key-value store. Expired entries are
// never returned.
type MemoryService struct {
	memories repository.MemoryRepository
	now      Clock
}

// MemorySetInput describes an upsert. ExpiresAt, when set, must be in the future.
type MemorySetInput struct {
	Key       string
	Value     json.RawMessage
	ExpiresAt *time.Time
}

// NewMemoryService constructs the service.
func NewMemoryService(memories repository.MemoryRepository, clock Clock) *MemoryService {
	return &MemoryService{memories: memories, now: clockOrNow(clock)}
}

// Set stores value under key, replacing any previous entry.
func (s *MemoryService) Set(ctx context.Context, principal *auth.Principal, input MemorySetInput) (*domain.Memory, error) {
	if err := requireAgent(principal); err != nil {
		return nil, err
	}
	key, err := validateMemoryKey(input.Key)
	if err != nil {
		return nil, err
	}
	if len(input.Value) == 0 || !json.Valid(input.Value) {
		return nil, apperrors.NewValidationError("value must be valid JSON", map[string]any{"field": "value"})
	}
	if len(input.Value) > maxMemoryValueSize {
		return nil, apperrors.NewValidationError("value too large", map[string]any{"field": "value", "max_bytes": maxMemoryValueSize})
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, apperrors.NewValidationError("expires_at must be in the future", map[string]any{"field": "expires_at"})
	}

	memory := &domain.Memory{
		AgentID:   principal.Agent.ID,
		Key:       key,
		Value:     input.Value,
		ExpiresAt: input.ExpiresAt,
	}
	if err := s.memories.Upsert(ctx, memory); err != nil {
		return nil, apperrors.MapError(err)
	}
	return memory, nil
}

// Get returns the live entry for key.
func (s *MemoryService) Get(ctx context.Context, principal *auth.Principal, key string) (*domain.Memory, error) {
	if err := requireAgent(principal); err != nil {
		return nil, err
	}
	key, err := validateMemoryKey(key)
	if err != nil {
		return nil, err
	}
	memory, err := s.memories.Get(ctx, principal.Agent.ID, key)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "memory", map[string]any{"key": key})
	}
	if memory.Expired(s.now()) {
		return nil, apperrors.NewNotFound("memory", map[string]any{"key": key})
	}
	return memory, nil
}

// Query returns the entry whose key equals q if one is live, otherwise
// every live entry whose key starts with q, sorted by key.
func (s *MemoryService) Query(ctx context.Context, principal *auth.Principal, q string) ([]domain.Memory, error) {
	if err := requireAgent(principal); err != nil {
		return nil, err
	}
	now := s.now()
	if q != "" {
		exact, err := s.memories.Get(ctx, principal.Agent.ID, q)
		switch {
		case err == nil && !exact.Expired(now):
			return []domain.Memory{*exact}, nil
		case err != nil && !errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.MapError(err)
		}
	}

	entries, err := s.memories.ListByPrefix(ctx, principal.Agent.ID, q)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	live := entries[:0]
	for _, m := range entries {
		if !m.Expired(now) {
			live = append(live, m)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Key < live[j].Key })
	return live, nil
}

// Delete removes key. Deleting an absent key succeeds.
func (s *MemoryService) Delete(ctx context.Context, principal *auth.Principal, key string) error {
	if err := requireAgent(principal); err != nil {
		return err
	}
	key, err := validateMemoryKey(key)
	if err != nil {
		return err
	}
	return apperrors.MapError(s.memories.Delete(ctx, principal.Agent.ID, key))
}

// PurgeExpired deletes every expired entry across agents.
func (s *MemoryService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.memories.DeleteExpired(ctx, s.now())
}

func validateMemoryKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", apperrors.NewValidationError("key is required", map[string]any{"field": "key"})
	}
	if len(key) > maxMemoryKeyLength {
		return "", apperrors.NewValidationError("key is too long", map[string]any{"field": "key", "max": maxMemoryKeyLength})
	}
	return key, nil
}
