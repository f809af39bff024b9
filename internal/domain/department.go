package domain

import "context"

type Department struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Manager        string   `json:"manager"`
	ManagerID      string   `json:"managerId"`
	Building       string   `json:"building"`
	Floor          string   `json:"floor"`
	Description    string   `json:"description"`
	ResponsibleFor []string `json:"responsibleFor"`
}

type DepartmentRepository interface {
	Upsert(ctx context.Context, d *Department) error
	List(ctx context.Context) ([]*Department, error)
}
