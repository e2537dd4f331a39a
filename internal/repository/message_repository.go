package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TESCHEL/agenthq/internal/domain"
)

// MessageRepository manages channel messages. Messages are append-only.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListByChannel returns up to limit messages older than the message with id
	// before (all newest when before is empty), in chronological order.
	ListByChannel(ctx context.Context, channelID string, limit int, before string) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (channel_id, author_type, author_id, content, message_type)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.ChannelID,
		msg.AuthorType,
		msg.AuthorID,
		msg.Content,
		msg.MessageType,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListByChannel(ctx context.Context, channelID string, limit int, before string) ([]domain.Message, error) {
	const query = `
        SELECT id, channel_id, author_type, author_id, content, message_type, created_at
        FROM (
            SELECT * FROM messages
            WHERE channel_id=$1
              AND ($2 = '' OR (created_at, id) < (SELECT created_at, id FROM messages WHERE id::text=$2))
            ORDER BY created_at DESC, id DESC
            LIMIT $3
        ) page
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, channelID, before, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ChannelID,
			&msg.AuthorType,
			&msg.AuthorID,
			&msg.Content,
			&msg.MessageType,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
