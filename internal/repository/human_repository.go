package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// HumanRepository defines persistence access for human accounts.
type HumanRepository interface {
	Create(ctx context.Context, human *domain.Human) error
	GetByID(ctx context.Context, id string) (*domain.Human, error)
	GetByEmail(ctx context.Context, email string) (*domain.Human, error)
}

type humanRepository struct {
	pool *pgxpool.Pool
}

// NewHumanRepository returns a Postgres-backed implementation.
func NewHumanRepository(pool *pgxpool.Pool) HumanRepository {
	return &humanRepository{pool: pool}
}

func (r *humanRepository) Create(ctx context.Context, human *domain.Human) error {
	const query = `
        INSERT INTO humans (email, password_hash, name)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		human.Email,
		human.PasswordHash,
		human.Name,
	).Scan(&human.ID, &human.CreatedAt)
}

func (r *humanRepository) GetByID(ctx context.Context, id string) (*domain.Human, error) {
	const query = `
        SELECT id, email, password_hash, name, created_at
        FROM humans WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *humanRepository) GetByEmail(ctx context.Context, email string) (*domain.Human, error) {
	const query = `
        SELECT id, email, password_hash, name, created_at
        FROM humans WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *humanRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Human, error) {
	var human domain.Human
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&human.ID,
		&human.Email,
		&human.PasswordHash,
		&human.Name,
		&human.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &human, nil
}
