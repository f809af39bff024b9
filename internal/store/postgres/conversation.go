package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	var params, turns, pending []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, agent_id, parameters, turns, pending, created_at, updated_at, expires_at, version
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.AgentID, &params, &turns, &pending, &c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt, &c.Version)
	if notFound(err) {
		return nil, fmt.Errorf("conversationRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.Get: %w", err)
	}

	if err := json.Unmarshal(params, &c.Parameters); err != nil {
		return nil, fmt.Errorf("conversationRepo.Get: unmarshal parameters: %w", err)
	}
	if err := json.Unmarshal(turns, &c.Turns); err != nil {
		return nil, fmt.Errorf("conversationRepo.Get: unmarshal turns: %w", err)
	}
	if err := json.Unmarshal(pending, &c.Pending); err != nil {
		return nil, fmt.Errorf("conversationRepo.Get: unmarshal pending: %w", err)
	}

	return &c, nil
}

// Save inserts c when c.Version is zero, otherwise updates the stored row
// only if its version still equals c.Version. A lost race returns
// domain.ErrConflict and leaves c unchanged.
func (r *ConversationRepo) Save(ctx context.Context, c *domain.Conversation) error {
	params, err := json.Marshal(c.Parameters)
	if err != nil {
		return fmt.Errorf("conversationRepo.Save: marshal parameters: %w", err)
	}
	turns, err := json.Marshal(emptyIfNil(c.Turns))
	if err != nil {
		return fmt.Errorf("conversationRepo.Save: marshal turns: %w", err)
	}
	pending, err := json.Marshal(emptyIfNil(c.Pending))
	if err != nil {
		return fmt.Errorf("conversationRepo.Save: marshal pending: %w", err)
	}

	next := c.Version + 1

	var query string
	var args []any
	if c.Version == 0 {
		query = `INSERT INTO conversations (id, agent_id, parameters, turns, pending, created_at, updated_at, expires_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`
		args = []any{c.ID, c.AgentID, params, turns, pending, c.CreatedAt, c.UpdatedAt, c.ExpiresAt, next}
	} else {
		query = `UPDATE conversations
		 SET parameters = $2, turns = $3, pending = $4, updated_at = $5, expires_at = $6, version = $7
		 WHERE id = $1 AND version = $8`
		args = []any{c.ID, params, turns, pending, c.UpdatedAt, c.ExpiresAt, next, c.Version}
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("conversationRepo.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversationRepo.Save: %w", domain.ErrConflict)
	}

	c.Version = next
	return nil
}

func (r *ConversationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("conversationRepo.DeleteExpired: %w", err)
	}

	return tag.RowsAffected(), nil
}
