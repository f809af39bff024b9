package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type PolicyRepo struct {
	pool *pgxpool.Pool
}

func NewPolicyRepo(pool *pgxpool.Pool) *PolicyRepo {
	return &PolicyRepo{pool: pool}
}

const policyColumns = `id, title, category, content, last_updated, updated_by, version, tags`

func (r *PolicyRepo) Upsert(ctx context.Context, p *domain.Policy) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO hr_policies (`+policyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title, category = EXCLUDED.category, content = EXCLUDED.content,
		   last_updated = EXCLUDED.last_updated, updated_by = EXCLUDED.updated_by,
		   version = EXCLUDED.version, tags = EXCLUDED.tags`,
		p.ID, p.Title, p.Category, p.Content, p.LastUpdated, p.UpdatedBy, p.Version, emptyIfNil(p.Tags),
	)
	if err != nil {
		return fmt.Errorf("policyRepo.Upsert: %w", err)
	}

	return nil
}

func (r *PolicyRepo) List(ctx context.Context) ([]*domain.Policy, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+policyColumns+` FROM hr_policies ORDER BY category, title`)
	if err != nil {
		return nil, fmt.Errorf("policyRepo.List: %w", err)
	}

	policies, err := collect(rows, scanPolicy)
	if err != nil {
		return nil, fmt.Errorf("policyRepo.List: %w", err)
	}

	return policies, nil
}

func (r *PolicyRepo) Search(ctx context.Context, terms []string, limit int) ([]*domain.Policy, error) {
	q := searchQuery(terms)
	if q == "" {
		return []*domain.Policy{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+policyColumns+`
		 FROM hr_policies, websearch_to_tsquery('english', $1) query
		 WHERE search @@ query
		 ORDER BY ts_rank(search, query) DESC, title
		 LIMIT $2`,
		q, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("policyRepo.Search: %w", err)
	}

	policies, err := collect(rows, scanPolicy)
	if err != nil {
		return nil, fmt.Errorf("policyRepo.Search: %w", err)
	}

	return emptyIfNil(policies), nil
}

func scanPolicy(row scanner) (*domain.Policy, error) {
	var p domain.Policy
	err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Content, &p.LastUpdated, &p.UpdatedBy, &p.Version, &p.Tags)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
