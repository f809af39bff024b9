package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type IssueRepo struct {
	pool *pgxpool.Pool
}

func NewIssueRepo(pool *pgxpool.Pool) *IssueRepo {
	return &IssueRepo{pool: pool}
}

const issueColumns = `id, employee_id, employee_name, title, description, category, priority, status,
	submitted_date, assigned_date, resolved_date, closed_date, assigned_to, resolution, comments, tags`

const uniqueViolation = "23505"

// Create inserts a new issue. A duplicate id returns domain.ErrConflict.
func (r *IssueRepo) Create(ctx context.Context, i *domain.Issue) error {
	err := r.write(ctx, `INSERT INTO hr_issues (`+issueColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`, i)
	if pgErr, ok := asPgError(err); ok && pgErr.Code == uniqueViolation {
		return fmt.Errorf("issueRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("issueRepo.Create: %w", err)
	}

	return nil
}

func (r *IssueRepo) Upsert(ctx context.Context, i *domain.Issue) error {
	err := r.write(ctx, `INSERT INTO hr_issues (`+issueColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		   employee_id = EXCLUDED.employee_id, employee_name = EXCLUDED.employee_name,
		   title = EXCLUDED.title, description = EXCLUDED.description,
		   category = EXCLUDED.category, priority = EXCLUDED.priority, status = EXCLUDED.status,
		   submitted_date = EXCLUDED.submitted_date, assigned_date = EXCLUDED.assigned_date,
		   resolved_date = EXCLUDED.resolved_date, closed_date = EXCLUDED.closed_date,
		   assigned_to = EXCLUDED.assigned_to, resolution = EXCLUDED.resolution,
		   comments = EXCLUDED.comments, tags = EXCLUDED.tags`, i)
	if err != nil {
		return fmt.Errorf("issueRepo.Upsert: %w", err)
	}

	return nil
}

func (r *IssueRepo) write(ctx context.Context, query string, i *domain.Issue) error {
	comments, err := json.Marshal(emptyIfNil(i.Comments))
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		i.ID, i.EmployeeID, i.EmployeeName, i.Title, i.Description, i.Category, i.Priority, i.Status,
		i.SubmittedDate, i.AssignedDate, i.ResolvedDate, i.ClosedDate, i.AssignedTo, i.Resolution,
		comments, emptyIfNil(i.Tags),
	)
	return err
}

func (r *IssueRepo) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	i, err := scanIssue(r.pool.QueryRow(ctx, `SELECT `+issueColumns+` FROM hr_issues WHERE id = $1`, id))
	if notFound(err) {
		return nil, fmt.Errorf("issueRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("issueRepo.GetByID: %w", err)
	}

	return i, nil
}

func (r *IssueRepo) List(ctx context.Context) ([]*domain.Issue, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+issueColumns+` FROM hr_issues ORDER BY submitted_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("issueRepo.List: %w", err)
	}

	issues, err := collect(rows, scanIssue)
	if err != nil {
		return nil, fmt.Errorf("issueRepo.List: %w", err)
	}

	return issues, nil
}

func (r *IssueRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.Issue, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+issueColumns+` FROM hr_issues WHERE employee_id = $1 ORDER BY submitted_date DESC`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("issueRepo.ListByEmployee: %w", err)
	}

	issues, err := collect(rows, scanIssue)
	if err != nil {
		return nil, fmt.Errorf("issueRepo.ListByEmployee: %w", err)
	}

	return emptyIfNil(issues), nil
}

func (r *IssueRepo) Search(ctx context.Context, employeeID string, terms []string, limit int) ([]*domain.Issue, error) {
	q := searchQuery(terms)
	if q == "" {
		return []*domain.Issue{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+issueColumns+`
		 FROM hr_issues, websearch_to_tsquery('english', $2) query
		 WHERE employee_id = $1 AND search @@ query
		 ORDER BY ts_rank(search, query) DESC, submitted_date DESC
		 LIMIT $3`,
		employeeID, q, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("issueRepo.Search: %w", err)
	}

	issues, err := collect(rows, scanIssue)
	if err != nil {
		return nil, fmt.Errorf("issueRepo.Search: %w", err)
	}

	return emptyIfNil(issues), nil
}

func scanIssue(row scanner) (*domain.Issue, error) {
	var i domain.Issue
	var comments []byte

	err := row.Scan(
		&i.ID, &i.EmployeeID, &i.EmployeeName, &i.Title, &i.Description, &i.Category, &i.Priority, &i.Status,
		&i.SubmittedDate, &i.AssignedDate, &i.ResolvedDate, &i.ClosedDate, &i.AssignedTo, &i.Resolution,
		&comments, &i.Tags,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(comments, &i.Comments)
	if err != nil {
		return nil, fmt.Errorf("unmarshal comments: %w", err)
	}

	return &i, nil
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := errors.As(err, &pgErr)
	return pgErr, ok
}
