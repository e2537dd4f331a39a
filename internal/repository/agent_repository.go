package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// AgentRepository handles persistence for agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Agent, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Agent, error)
	SetActive(ctx context.Context, id string, active bool) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, workspace_id, name, api_key, is_active, last_seen_at, created_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (workspace_id, name, api_key, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		agent.WorkspaceID,
		agent.Name,
		agent.APIKey,
		agent.IsActive,
	).Scan(&agent.ID, &agent.CreatedAt)
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	return scanAgent(r.pool.QueryRow(ctx, query, id))
}

func (r *agentRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE api_key=$1`
	return scanAgent(r.pool.QueryRow(ctx, query, apiKey))
}

func (r *agentRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE workspace_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) SetActive(ctx context.Context, id string, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET is_active=$1 WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE agents SET last_seen_at=$1
        WHERE id=$2 AND (last_seen_at IS NULL OR last_seen_at < $1)`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.WorkspaceID,
		&agent.Name,
		&agent.APIKey,
		&agent.IsActive,
		&agent.LastSeenAt,
		&agent.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
