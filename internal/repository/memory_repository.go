package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// MemoryRepository stores per-agent key-value entries.
type MemoryRepository interface {
	// Upsert replaces any entry for (AgentID, Key) in one statement and fills
	// ID, CreatedAt and UpdatedAt from the stored row.
	Upsert(ctx context.Context, memory *domain.Memory) error
	Get(ctx context.Context, agentID, key string) (*domain.Memory, error)
	ListByPrefix(ctx context.Context, agentID, prefix string) ([]domain.Memory, error)
	// Delete removes the entry if present. Absent keys are not an error.
	Delete(ctx context.Context, agentID, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type memoryRepository struct {
	pool *pgxpool.Pool
}

// NewMemoryRepository constructs repository.
func NewMemoryRepository(pool *pgxpool.Pool) MemoryRepository {
	return &memoryRepository{pool: pool}
}

func (r *memoryRepository) Upsert(ctx context.Context, memory *domain.Memory) error {
	const query = `
        INSERT INTO memories (agent_id, key, value, expires_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (agent_id, key) DO UPDATE
            SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		memory.AgentID,
		memory.Key,
		memory.Value,
		memory.ExpiresAt,
	).Scan(&memory.ID, &memory.CreatedAt, &memory.UpdatedAt)
}

func (r *memoryRepository) Get(ctx context.Context, agentID, key string) (*domain.Memory, error) {
	const query = `
        SELECT id, agent_id, key, value, expires_at, created_at, updated_at
        FROM memories WHERE agent_id=$1 AND key=$2`
	return scanMemory(r.pool.QueryRow(ctx, query, agentID, key))
}

func (r *memoryRepository) ListByPrefix(ctx context.Context, agentID, prefix string) ([]domain.Memory, error) {
	const query = `
        SELECT id, agent_id, key, value, expires_at, created_at, updated_at
        FROM memories WHERE agent_id=$1 AND starts_with(key, $2)`
	rows, err := r.pool.Query(ctx, query, agentID, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Memory{}
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *memory)
	}
	return result, rows.Err()
}

func (r *memoryRepository) Delete(ctx context.Context, agentID, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM memories WHERE agent_id=$1 AND key=$2`, agentID, key)
	return err
}

func (r *memoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM memories WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanMemory(row pgx.Row) (*domain.Memory, error) {
	var memory domain.Memory
	if err := row.Scan(
		&memory.ID,
		&memory.AgentID,
		&memory.Key,
		&memory.Value,
		&memory.ExpiresAt,
		&memory.CreatedAt,
		&memory.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &memory, nil
}
