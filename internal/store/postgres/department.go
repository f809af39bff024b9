package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type DepartmentRepo struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepo(pool *pgxpool.Pool) *DepartmentRepo {
	return &DepartmentRepo{pool: pool}
}

func (r *DepartmentRepo) Upsert(ctx context.Context, d *domain.Department) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO departments (id, name, manager, manager_id, building, floor, description, responsible_for)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, manager = EXCLUDED.manager, manager_id = EXCLUDED.manager_id,
		   building = EXCLUDED.building, floor = EXCLUDED.floor,
		   description = EXCLUDED.description, responsible_for = EXCLUDED.responsible_for`,
		d.ID, d.Name, d.Manager, d.ManagerID, d.Building, d.Floor, d.Description, emptyIfNil(d.ResponsibleFor),
	)
	if err != nil {
		return fmt.Errorf("departmentRepo.Upsert: %w", err)
	}

	return nil
}

func (r *DepartmentRepo) List(ctx context.Context) ([]*domain.Department, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, manager, manager_id, building, floor, description, responsible_for
		 FROM departments ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("departmentRepo.List: %w", err)
	}

	departments, err := collect(rows, func(row scanner) (*domain.Department, error) {
		var d domain.Department
		err := row.Scan(&d.ID, &d.Name, &d.Manager, &d.ManagerID, &d.Building, &d.Floor, &d.Description, &d.ResponsibleFor)
		return &d, err
	})
	if err != nil {
		return nil, fmt.Errorf("departmentRepo.List: %w", err)
	}

	return departments, nil
}
