package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type Store struct {
	pool          *pgxpool.Pool
	employees     *EmployeeRepo
	departments   *DepartmentRepo
	policies      *PolicyRepo
	vacations     *VacationRepo
	payStubs      *PayStubRepo
	issues        *IssueRepo
	signatureDocs *SignatureDocumentRepo
	conversations *ConversationRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return NewFromPool(pool), nil
}

// NewFromPool wraps an existing pool. The store takes ownership of the pool.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:          pool,
		employees:     NewEmployeeRepo(pool),
		departments:   NewDepartmentRepo(pool),
		policies:      NewPolicyRepo(pool),
		vacations:     NewVacationRepo(pool),
		payStubs:      NewPayStubRepo(pool),
		issues:        NewIssueRepo(pool),
		signatureDocs: NewSignatureDocumentRepo(pool),
		conversations: NewConversationRepo(pool),
	}
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Employees() domain.EmployeeRepository                   { return s.employees }
func (s *Store) Departments() domain.DepartmentRepository               { return s.departments }
func (s *Store) Policies() domain.PolicyRepository                      { return s.policies }
func (s *Store) Vacations() domain.VacationRepository                   { return s.vacations }
func (s *Store) PayStubs() domain.PayStubRepository                     { return s.payStubs }
func (s *Store) Issues() domain.IssueRepository                         { return s.issues }
func (s *Store) SignatureDocuments() domain.SignatureDocumentRepository { return s.signatureDocs }
func (s *Store) Conversations() domain.ConversationRepository           { return s.conversations }

// --- Helpers ---

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// collect drains rows through scan, closing rows when done.
func collect[T any](rows pgx.Rows, scan func(scanner) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return out, nil
}

func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// searchQuery joins terms into a websearch_to_tsquery expression matching any term.
func searchQuery(terms []string) string {
	var q string
	for _, t := range terms {
		if t == "" {
			continue
		}
		if q != "" {
			q += " or "
		}
		q += t
	}
	return q
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
