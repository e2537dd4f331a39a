package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/repository"
)

// uniqueViolation mirrors the Postgres error for duplicate keys so callers map
// it the same way.
func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

type humanRepo struct{ s *Store }

func (r *humanRepo) Create(_ context.Context, human *domain.Human) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range r.s.humans {
		if h.Email == human.Email {
			return uniqueViolation("humans_email_key")
		}
	}
	human.ID = newID()
	human.CreatedAt = r.s.now()
	c := *human
	r.s.humans[c.ID] = &c
	return nil
}

func (r *humanRepo) GetByID(_ context.Context, id string) (*domain.Human, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.humans[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *h
	return &c, nil
}

func (r *humanRepo) GetByEmail(_ context.Context, email string) (*domain.Human, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, h := range r.s.humans {
		if h.Email == email {
			c := *h
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type workspaceRepo struct{ s *Store }

func (r *workspaceRepo) CreateWithOwner(_ context.Context, workspace *domain.Workspace, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.workspaces {
		if w.Slug == workspace.Slug {
			return uniqueViolation("workspaces_slug_key")
		}
	}
	if _, ok := r.s.humans[ownerID]; !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "workspace_members_human_id_fkey"}
	}
	now := r.s.now()
	workspace.ID = newID()
	workspace.CreatedAt = now
	c := *workspace
	r.s.workspaces[c.ID] = &c
	r.s.members[memberKey{c.ID, ownerID}] = &domain.WorkspaceMember{
		WorkspaceID: c.ID,
		HumanID:     ownerID,
		Role:        domain.MemberRoleOwner,
		JoinedAt:    now,
	}
	return nil
}

func (r *workspaceRepo) GetByID(_ context.Context, id string) (*domain.Workspace, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.workspaces[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *w
	return &c, nil
}

func (r *workspaceRepo) GetBySlug(_ context.Context, slug string) (*domain.Workspace, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.workspaces {
		if w.Slug == slug {
			c := *w
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *workspaceRepo) ListForHuman(_ context.Context, humanID string) ([]domain.Workspace, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Workspace{}
	for key := range r.s.members {
		if key.humanID != humanID {
			continue
		}
		if w, ok := r.s.workspaces[key.workspaceID]; ok {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *workspaceRepo) AddMember(_ context.Context, member *domain.WorkspaceMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey{member.WorkspaceID, member.HumanID}
	if _, exists := r.s.members[key]; exists {
		return uniqueViolation("workspace_members_pkey")
	}
	member.JoinedAt = r.s.now()
	c := *member
	r.s.members[key] = &c
	return nil
}

func (r *workspaceRepo) GetMember(_ context.Context, workspaceID, humanID string) (*domain.WorkspaceMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[memberKey{workspaceID, humanID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *m
	return &c, nil
}

type agentRepo struct{ s *Store }

func (r *agentRepo) Create(_ context.Context, agent *domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.agents {
		if a.APIKey == agent.APIKey {
			return uniqueViolation("agents_api_key_key")
		}
	}
	agent.ID = newID()
	agent.CreatedAt = r.s.now()
	c := *agent
	r.s.agents[c.ID] = &c
	return nil
}

func (r *agentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyAgent(a), nil
}

func (r *agentRepo) GetByAPIKey(_ context.Context, apiKey string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.agents {
		if a.APIKey == apiKey {
			return copyAgent(a), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *agentRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Agent{}
	for _, a := range r.s.agents {
		if a.WorkspaceID == workspaceID {
			result = append(result, *copyAgent(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *agentRepo) SetActive(_ context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agents[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.IsActive = active
	return nil
}

func (r *agentRepo) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agents[id]
	if !ok {
		return nil
	}
	if a.LastSeenAt == nil || a.LastSeenAt.Before(at) {
		seen := at
		a.LastSeenAt = &seen
	}
	return nil
}

func copyAgent(a *domain.Agent) *domain.Agent {
	c := *a
	if a.LastSeenAt != nil {
		seen := *a.LastSeenAt
		c.LastSeenAt = &seen
	}
	return &c
}

type channelRepo struct{ s *Store }

func (r *channelRepo) Create(_ context.Context, channel *domain.Channel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.workspaces[channel.WorkspaceID]; !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "channels_workspace_id_fkey"}
	}
	channel.ID = newID()
	channel.CreatedAt = r.s.now()
	c := *channel
	r.s.channels[c.ID] = &c
	return nil
}

func (r *channelRepo) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ch, ok := r.s.channels[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *ch
	return &c, nil
}

func (r *channelRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]domain.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Channel{}
	for _, ch := range r.s.channels {
		if ch.WorkspaceID == workspaceID {
			result = append(result, *ch)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.channels[msg.ChannelID]; !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "messages_channel_id_fkey"}
	}
	msg.ID = newID()
	msg.CreatedAt = r.s.now()
	c := *msg
	r.s.messages[c.ChannelID] = append(r.s.messages[c.ChannelID], &c)
	return nil
}

func (r *messageRepo) ListByChannel(_ context.Context, channelID string, limit int, before string) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.s.messages[channelID]
	end := len(all)
	if before != "" {
		end = -1
		for i, m := range all {
			if m.ID == before {
				end = i
				break
			}
		}
		if end < 0 {
			return []domain.Message{}, nil
		}
	}
	limit = repository.ClampLimit(limit)
	start := end - limit
	if start < 0 {
		start = 0
	}
	result := make([]domain.Message, 0, end-start)
	for _, m := range all[start:end] {
		result = append(result, *m)
	}
	return result, nil
}

type handoffRepo struct{ s *Store }

func (r *handoffRepo) Create(_ context.Context, handoff *domain.Handoff) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.workspaces[handoff.WorkspaceID]; !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "handoffs_workspace_id_fkey"}
	}
	handoff.ID = newID()
	handoff.CreatedAt = r.s.now()
	r.s.handoffs[handoff.ID] = copyHandoff(handoff)
	return nil
}

func (r *handoffRepo) GetByID(_ context.Context, id string) (*domain.Handoff, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.handoffs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyHandoff(h), nil
}

func (r *handoffRepo) ListByWorkspace(_ context.Context, workspaceID string, status *domain.HandoffStatus) ([]domain.Handoff, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Handoff{}
	for _, h := range r.s.handoffs {
		if h.WorkspaceID != workspaceID {
			continue
		}
		if status != nil && h.Status != *status {
			continue
		}
		result = append(result, *copyHandoff(h))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *handoffRepo) UpdateStatus(_ context.Context, id string, from, to domain.HandoffStatus, resolvedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.transitionLocked(id, from, to, resolvedAt)
	return err
}

func (r *handoffRepo) UpdateStatusAndPriority(_ context.Context, id string, from, to domain.HandoffStatus, resolvedAt *time.Time, priority domain.HandoffPriority) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, err := r.transitionLocked(id, from, to, resolvedAt)
	if err != nil {
		return err
	}
	h.Priority = priority
	return nil
}

// transitionLocked must be called with r.s.mu held.
func (r *handoffRepo) transitionLocked(id string, from, to domain.HandoffStatus, resolvedAt *time.Time) (*domain.Handoff, error) {
	h, ok := r.s.handoffs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if h.Status != from {
		return nil, repository.ErrStatusChanged
	}
	h.Status = to
	if h.ResolvedAt == nil && resolvedAt != nil {
		at := *resolvedAt
		h.ResolvedAt = &at
	}
	return h, nil
}

func (r *handoffRepo) UpdatePriority(_ context.Context, id string, priority domain.HandoffPriority) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.handoffs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	h.Priority = priority
	return nil
}

func copyHandoff(h *domain.Handoff) *domain.Handoff {
	c := *h
	c.ChannelID = copyString(h.ChannelID)
	c.FromAgentID = copyString(h.FromAgentID)
	c.ToHumanID = copyString(h.ToHumanID)
	if h.ResolvedAt != nil {
		at := *h.ResolvedAt
		c.ResolvedAt = &at
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

type memoryRepo struct{ s *Store }

func (r *memoryRepo) Upsert(_ context.Context, memory *domain.Memory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memoryKey{memory.AgentID, memory.Key}
	now := r.s.now()
	if existing, ok := r.s.memories[key]; ok {
		memory.ID = existing.ID
		memory.CreatedAt = existing.CreatedAt
	} else {
		memory.ID = newID()
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now
	r.s.memories[key] = copyMemory(memory)
	return nil
}

func (r *memoryRepo) Get(_ context.Context, agentID, key string) (*domain.Memory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.memories[memoryKey{agentID, key}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyMemory(m), nil
}

func (r *memoryRepo) ListByPrefix(_ context.Context, agentID, prefix string) ([]domain.Memory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Memory{}
	for key, m := range r.s.memories {
		if key.agentID == agentID && strings.HasPrefix(key.key, prefix) {
			result = append(result, *copyMemory(m))
		}
	}
	return result, nil
}

func (r *memoryRepo) Delete(_ context.Context, agentID, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.memories, memoryKey{agentID, key})
	return nil
}

func (r *memoryRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for key, m := range r.s.memories {
		if m.Expired(now) {
			delete(r.s.memories, key)
			n++
		}
	}
	return n, nil
}

func copyMemory(m *domain.Memory) *domain.Memory {
	c := *m
	c.Value = append([]byte(nil), m.Value...)
	if m.ExpiresAt != nil {
		at := *m.ExpiresAt
		c.ExpiresAt = &at
	}
	return &c
}
