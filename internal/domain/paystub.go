package domain

import (
	"context"
	"time"
)

// PayLine is one named amount on a pay stub (an earning, deduction or tax).
type PayLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type PayStub struct {
	ID              string    `json:"id"`
	EmployeeID      string    `json:"employeeId"`
	PayPeriodStart  time.Time `json:"payPeriodStart"`
	PayPeriodEnd    time.Time `json:"payPeriodEnd"`
	PayDate         time.Time `json:"payDate"`
	GrossPay        float64   `json:"grossPay"`
	NetPay          float64   `json:"netPay"`
	Earnings        []PayLine `json:"earnings"`
	Deductions      []PayLine `json:"deductions"`
	Taxes           []PayLine `json:"taxes"`
	YearToDateGross float64   `json:"yearToDateGross"`
	YearToDateNet   float64   `json:"yearToDateNet"`
	PayPeriodNumber int       `json:"payPeriodNumber"`
	PayFrequency    string    `json:"payFrequency"`
}

type PayStubRepository interface {
	Upsert(ctx context.Context, p *PayStub) error
	// ListByEmployee returns stubs newest pay date first.
	ListByEmployee(ctx context.Context, employeeID string) ([]*PayStub, error)
	// ListByEmployeeBetween returns stubs with from <= pay date <= to, newest first.
	ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time, limit int) ([]*PayStub, error)
}
