package domain

import (
	"context"
	"time"
)

type VacationStatus string

const (
	VacationStatusPending  VacationStatus = "pending"
	VacationStatusApproved VacationStatus = "approved"
	VacationStatusDenied   VacationStatus = "denied"
)

type VacationRequest struct {
	ID               string         `json:"id"`
	EmployeeID       string         `json:"employeeId"`
	StartDate        time.Time      `json:"startDate"`
	EndDate          time.Time      `json:"endDate"`
	Days             int            `json:"days"`
	Reason           string         `json:"reason"`
	Status           VacationStatus `json:"status"`
	Replacement      *Replacement   `json:"replacement,omitempty"`
	SubmittedDate    time.Time      `json:"submittedDate"`
	ReviewedDate     *time.Time     `json:"reviewedDate,omitempty"`
	ReviewedBy       string         `json:"reviewedBy,omitempty"`
	PeakTimeConflict bool           `json:"peakTimeConflict"`
}

type VacationRepository interface {
	Upsert(ctx context.Context, v *VacationRequest) error
	List(ctx context.Context) ([]*VacationRequest, error)
	// ListRecentByEmployee returns the newest requests by submission date.
	ListRecentByEmployee(ctx context.Context, employeeID string, limit int) ([]*VacationRequest, error)
}
