package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// HandoffRepository encapsulates handoff persistence.
type HandoffRepository interface {
	Create(ctx context.Context, handoff *domain.Handoff) error
	GetByID(ctx context.Context, id string) (*domain.Handoff, error)
	ListByWorkspace(ctx context.Context, workspaceID string, status *domain.HandoffStatus) ([]domain.Handoff, error)
	// UpdateStatus writes status and resolvedAt only if the row still has
	// from as its status; otherwise it returns ErrStatusChanged.
	UpdateStatus(ctx context.Context, id string, from, to domain.HandoffStatus, resolvedAt *time.Time) error
	UpdatePriority(ctx context.Context, id string, priority domain.HandoffPriority) error
	// UpdateStatusAndPriority is UpdateStatus that also writes priority in
	// the same statement.
	UpdateStatusAndPriority(ctx context.Context, id string, from, to domain.HandoffStatus, resolvedAt *time.Time, priority domain.HandoffPriority) error
}

type handoffRepository struct {
	pool *pgxpool.Pool
}

// NewHandoffRepository instantiates repository.
func NewHandoffRepository(pool *pgxpool.Pool) HandoffRepository {
	return &handoffRepository{pool: pool}
}

const handoffColumns = `id, workspace_id, channel_id, title, description, status, priority,
               from_agent_id, to_human_id, resolved_at, created_at`

func (r *handoffRepository) Create(ctx context.Context, handoff *domain.Handoff) error {
	const query = `
        INSERT INTO handoffs (workspace_id, channel_id, title, description, status, priority, from_agent_id, to_human_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		handoff.WorkspaceID,
		handoff.ChannelID,
		handoff.Title,
		handoff.Description,
		handoff.Status,
		handoff.Priority,
		handoff.FromAgentID,
		handoff.ToHumanID,
	).Scan(&handoff.ID, &handoff.CreatedAt)
}

func (r *handoffRepository) GetByID(ctx context.Context, id string) (*domain.Handoff, error) {
	query := `SELECT ` + handoffColumns + ` FROM handoffs WHERE id=$1`
	return scanHandoff(r.pool.QueryRow(ctx, query, id))
}

func (r *handoffRepository) ListByWorkspace(ctx context.Context, workspaceID string, status *domain.HandoffStatus) ([]domain.Handoff, error) {
	query := `SELECT ` + handoffColumns + ` FROM handoffs WHERE workspace_id=$1`
	args := []any{workspaceID}
	if status != nil {
		args = append(args, *status)
		query += ` AND status=$2`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Handoff{}
	for rows.Next() {
		handoff, err := scanHandoff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *handoff)
	}
	return result, rows.Err()
}

func (r *handoffRepository) UpdateStatus(ctx context.Context, id string, from, to domain.HandoffStatus, resolvedAt *time.Time) error {
	const query = `
        UPDATE handoffs SET status=$1, resolved_at=COALESCE(resolved_at, $2)
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, to, resolvedAt, id, from)
	if err != nil {
		return err
	}
	return r.conditionalResult(ctx, id, cmd.RowsAffected())
}

func (r *handoffRepository) UpdateStatusAndPriority(ctx context.Context, id string, from, to domain.HandoffStatus, resolvedAt *time.Time, priority domain.HandoffPriority) error {
	const query = `
        UPDATE handoffs SET status=$1, resolved_at=COALESCE(resolved_at, $2), priority=$3
        WHERE id=$4 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, to, resolvedAt, priority, id, from)
	if err != nil {
		return err
	}
	return r.conditionalResult(ctx, id, cmd.RowsAffected())
}

// conditionalResult tells a missing row apart from a lost status race.
func (r *handoffRepository) conditionalResult(ctx context.Context, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM handoffs WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrStatusChanged
}

func (r *handoffRepository) UpdatePriority(ctx context.Context, id string, priority domain.HandoffPriority) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE handoffs SET priority=$1 WHERE id=$2`, priority, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanHandoff(row pgx.Row) (*domain.Handoff, error) {
	var handoff domain.Handoff
	if err := row.Scan(
		&handoff.ID,
		&handoff.WorkspaceID,
		&handoff.ChannelID,
		&handoff.Title,
		&handoff.Description,
		&handoff.Status,
		&handoff.Priority,
		&handoff.FromAgentID,
		&handoff.ToHumanID,
		&handoff.ResolvedAt,
		&handoff.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &handoff, nil
}
