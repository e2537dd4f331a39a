package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// WorkspaceRepository manages workspaces and their human membership.
type WorkspaceRepository interface {
	// CreateWithOwner inserts the workspace and its first member atomically.
	CreateWithOwner(ctx context.Context, workspace *domain.Workspace, ownerID string) error
	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Workspace, error)
	ListForHuman(ctx context.Context, humanID string) ([]domain.Workspace, error)
	AddMember(ctx context.Context, member *domain.WorkspaceMember) error
	GetMember(ctx context.Context, workspaceID, humanID string) (*domain.WorkspaceMember, error)
}

type workspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository constructs repository.
func NewWorkspaceRepository(pool *pgxpool.Pool) WorkspaceRepository {
	return &workspaceRepository{pool: pool}
}

func (r *workspaceRepository) CreateWithOwner(ctx context.Context, workspace *domain.Workspace, ownerID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertWorkspace = `
        INSERT INTO workspaces (name, slug)
        VALUES ($1,$2)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertWorkspace, workspace.Name, workspace.Slug).
		Scan(&workspace.ID, &workspace.CreatedAt); err != nil {
		return err
	}

	const insertMember = `
        INSERT INTO workspace_members (workspace_id, human_id, role)
        VALUES ($1,$2,$3)`
	if _, err := tx.Exec(ctx, insertMember, workspace.ID, ownerID, domain.MemberRoleOwner); err != nil {
		return fmt.Errorf("add owner: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *workspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	const query = `SELECT id, name, slug, created_at FROM workspaces WHERE id=$1`
	return scanWorkspace(r.pool.QueryRow(ctx, query, id))
}

func (r *workspaceRepository) GetBySlug(ctx context.Context, slug string) (*domain.Workspace, error) {
	const query = `SELECT id, name, slug, created_at FROM workspaces WHERE slug=$1`
	return scanWorkspace(r.pool.QueryRow(ctx, query, slug))
}

func (r *workspaceRepository) ListForHuman(ctx context.Context, humanID string) ([]domain.Workspace, error) {
	const query = `
        SELECT w.id, w.name, w.slug, w.created_at
        FROM workspaces w
        JOIN workspace_members m ON m.workspace_id = w.id
        WHERE m.human_id=$1
        ORDER BY w.created_at ASC`
	rows, err := r.pool.Query(ctx, query, humanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ws)
	}
	return result, rows.Err()
}

func (r *workspaceRepository) AddMember(ctx context.Context, member *domain.WorkspaceMember) error {
	const query = `
        INSERT INTO workspace_members (workspace_id, human_id, role)
        VALUES ($1,$2,$3)
        RETURNING joined_at`
	return r.pool.QueryRow(ctx, query, member.WorkspaceID, member.HumanID, member.Role).Scan(&member.JoinedAt)
}

func (r *workspaceRepository) GetMember(ctx context.Context, workspaceID, humanID string) (*domain.WorkspaceMember, error) {
	const query = `
        SELECT workspace_id, human_id, role, joined_at
        FROM workspace_members WHERE workspace_id=$1 AND human_id=$2`
	var member domain.WorkspaceMember
	if err := r.pool.QueryRow(ctx, query, workspaceID, humanID).Scan(
		&member.WorkspaceID,
		&member.HumanID,
		&member.Role,
		&member.JoinedAt,
	); err != nil {
		return nil, err
	}
	return &member, nil
}

func scanWorkspace(row pgx.Row) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := row.Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.CreatedAt); err != nil {
		return nil, err
	}
	return &ws, nil
}
