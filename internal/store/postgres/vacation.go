package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type VacationRepo struct {
	pool *pgxpool.Pool
}

func NewVacationRepo(pool *pgxpool.Pool) *VacationRepo {
	return &VacationRepo{pool: pool}
}

const vacationColumns = `id, employee_id, start_date, end_date, days, reason, status, replacement,
	submitted_date, reviewed_date, reviewed_by, peak_time_conflict`

func (r *VacationRepo) Upsert(ctx context.Context, v *domain.VacationRequest) error {
	var replacement []byte
	if v.Replacement != nil {
		var err error
		replacement, err = json.Marshal(v.Replacement)
		if err != nil {
			return fmt.Errorf("vacationRepo.Upsert: marshal replacement: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO vacation_requests (`+vacationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   employee_id = EXCLUDED.employee_id, start_date = EXCLUDED.start_date,
		   end_date = EXCLUDED.end_date, days = EXCLUDED.days, reason = EXCLUDED.reason,
		   status = EXCLUDED.status, replacement = EXCLUDED.replacement,
		   submitted_date = EXCLUDED.submitted_date, reviewed_date = EXCLUDED.reviewed_date,
		   reviewed_by = EXCLUDED.reviewed_by, peak_time_conflict = EXCLUDED.peak_time_conflict`,
		v.ID, v.EmployeeID, v.StartDate, v.EndDate, v.Days, v.Reason, v.Status, replacement,
		v.SubmittedDate, v.ReviewedDate, v.ReviewedBy, v.PeakTimeConflict,
	)
	if err != nil {
		return fmt.Errorf("vacationRepo.Upsert: %w", err)
	}

	return nil
}

func (r *VacationRepo) List(ctx context.Context) ([]*domain.VacationRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+vacationColumns+` FROM vacation_requests ORDER BY submitted_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("vacationRepo.List: %w", err)
	}

	requests, err := collect(rows, scanVacation)
	if err != nil {
		return nil, fmt.Errorf("vacationRepo.List: %w", err)
	}

	return requests, nil
}

func (r *VacationRepo) ListRecentByEmployee(ctx context.Context, employeeID string, limit int) ([]*domain.VacationRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+vacationColumns+` FROM vacation_requests
		 WHERE employee_id = $1
		 ORDER BY submitted_date DESC
		 LIMIT $2`,
		employeeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("vacationRepo.ListRecentByEmployee: %w", err)
	}

	requests, err := collect(rows, scanVacation)
	if err != nil {
		return nil, fmt.Errorf("vacationRepo.ListRecentByEmployee: %w", err)
	}

	return emptyIfNil(requests), nil
}

func scanVacation(row scanner) (*domain.VacationRequest, error) {
	var v domain.VacationRequest
	var replacement []byte

	err := row.Scan(
		&v.ID, &v.EmployeeID, &v.StartDate, &v.EndDate, &v.Days, &v.Reason, &v.Status, &replacement,
		&v.SubmittedDate, &v.ReviewedDate, &v.ReviewedBy, &v.PeakTimeConflict,
	)
	if err != nil {
		return nil, err
	}

	if len(replacement) > 0 {
		v.Replacement = &domain.Replacement{}
		err = json.Unmarshal(replacement, v.Replacement)
		if err != nil {
			return nil, fmt.Errorf("unmarshal replacement: %w", err)
		}
	}

	return &v, nil
}
