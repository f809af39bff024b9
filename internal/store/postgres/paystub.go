package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type PayStubRepo struct {
	pool *pgxpool.Pool
}

func NewPayStubRepo(pool *pgxpool.Pool) *PayStubRepo {
	return &PayStubRepo{pool: pool}
}

const payStubColumns = `id, employee_id, pay_period_start, pay_period_end, pay_date, gross_pay, net_pay,
	earnings, deductions, taxes, year_to_date_gross, year_to_date_net, pay_period_number, pay_frequency`

func (r *PayStubRepo) Upsert(ctx context.Context, p *domain.PayStub) error {
	earnings, err := json.Marshal(emptyIfNil(p.Earnings))
	if err != nil {
		return fmt.Errorf("payStubRepo.Upsert: marshal earnings: %w", err)
	}
	deductions, err := json.Marshal(emptyIfNil(p.Deductions))
	if err != nil {
		return fmt.Errorf("payStubRepo.Upsert: marshal deductions: %w", err)
	}
	taxes, err := json.Marshal(emptyIfNil(p.Taxes))
	if err != nil {
		return fmt.Errorf("payStubRepo.Upsert: marshal taxes: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO pay_stubs (`+payStubColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   employee_id = EXCLUDED.employee_id, pay_period_start = EXCLUDED.pay_period_start,
		   pay_period_end = EXCLUDED.pay_period_end, pay_date = EXCLUDED.pay_date,
		   gross_pay = EXCLUDED.gross_pay, net_pay = EXCLUDED.net_pay,
		   earnings = EXCLUDED.earnings, deductions = EXCLUDED.deductions, taxes = EXCLUDED.taxes,
		   year_to_date_gross = EXCLUDED.year_to_date_gross, year_to_date_net = EXCLUDED.year_to_date_net,
		   pay_period_number = EXCLUDED.pay_period_number, pay_frequency = EXCLUDED.pay_frequency`,
		p.ID, p.EmployeeID, p.PayPeriodStart, p.PayPeriodEnd, p.PayDate, p.GrossPay, p.NetPay,
		earnings, deductions, taxes, p.YearToDateGross, p.YearToDateNet, p.PayPeriodNumber, p.PayFrequency,
	)
	if err != nil {
		return fmt.Errorf("payStubRepo.Upsert: %w", err)
	}

	return nil
}

func (r *PayStubRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.PayStub, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+payStubColumns+` FROM pay_stubs WHERE employee_id = $1 ORDER BY pay_date DESC`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("payStubRepo.ListByEmployee: %w", err)
	}

	stubs, err := collect(rows, scanPayStub)
	if err != nil {
		return nil, fmt.Errorf("payStubRepo.ListByEmployee: %w", err)
	}

	return emptyIfNil(stubs), nil
}

func (r *PayStubRepo) ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time, limit int) ([]*domain.PayStub, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+payStubColumns+` FROM pay_stubs
		 WHERE employee_id = $1 AND pay_date >= $2 AND pay_date <= $3
		 ORDER BY pay_date DESC
		 LIMIT $4`,
		employeeID, from, to, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("payStubRepo.ListByEmployeeBetween: %w", err)
	}

	stubs, err := collect(rows, scanPayStub)
	if err != nil {
		return nil, fmt.Errorf("payStubRepo.ListByEmployeeBetween: %w", err)
	}

	return emptyIfNil(stubs), nil
}

func scanPayStub(row scanner) (*domain.PayStub, error) {
	var p domain.PayStub
	var earnings, deductions, taxes []byte

	err := row.Scan(
		&p.ID, &p.EmployeeID, &p.PayPeriodStart, &p.PayPeriodEnd, &p.PayDate, &p.GrossPay, &p.NetPay,
		&earnings, &deductions, &taxes, &p.YearToDateGross, &p.YearToDateNet, &p.PayPeriodNumber, &p.PayFrequency,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(earnings, &p.Earnings); err != nil {
		return nil, fmt.Errorf("unmarshal earnings: %w", err)
	}
	if err := json.Unmarshal(deductions, &p.Deductions); err != nil {
		return nil, fmt.Errorf("unmarshal deductions: %w", err)
	}
	if err := json.Unmarshal(taxes, &p.Taxes); err != nil {
		return nil, fmt.Errorf("unmarshal taxes: %w", err)
	}

	return &p, nil
}
