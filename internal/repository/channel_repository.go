package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// ChannelRepository manages persistence for channels.
type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Channel, error)
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository constructs repository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

func (r *channelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	const query = `
        INSERT INTO channels (workspace_id, name, description, is_private)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		channel.WorkspaceID,
		channel.Name,
		channel.Description,
		channel.IsPrivate,
	).Scan(&channel.ID, &channel.CreatedAt)
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	const query = `
        SELECT id, workspace_id, name, description, is_private, created_at
        FROM channels WHERE id=$1`
	return scanChannel(r.pool.QueryRow(ctx, query, id))
}

func (r *channelRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Channel, error) {
	const query = `
        SELECT id, workspace_id, name, description, is_private, created_at
        FROM channels WHERE workspace_id=$1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *channel)
	}
	return result, rows.Err()
}

func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var channel domain.Channel
	if err := row.Scan(
		&channel.ID,
		&channel.WorkspaceID,
		&channel.Name,
		&channel.Description,
		&channel.IsPrivate,
		&channel.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &channel, nil
}
