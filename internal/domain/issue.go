package domain

import (
	"context"
	"time"
)

type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusResolved   IssueStatus = "Resolved"
	IssueStatusClosed     IssueStatus = "Closed"
)

type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "Low"
	IssuePriorityMedium   IssuePriority = "Medium"
	IssuePriorityHigh     IssuePriority = "High"
	IssuePriorityCritical IssuePriority = "Critical"
)

// IssuePriorities lists the accepted priorities in ascending order.
func IssuePriorities() []IssuePriority {
	return []IssuePriority{IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh, IssuePriorityCritical}
}

type Issue struct {
	ID            string         `json:"id"`
	EmployeeID    string         `json:"employeeId"`
	EmployeeName  string         `json:"employeeName"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Priority      IssuePriority  `json:"priority"`
	Status        IssueStatus    `json:"status"`
	SubmittedDate time.Time      `json:"submittedDate"`
	AssignedDate  *time.Time     `json:"assignedDate,omitempty"`
	ResolvedDate  *time.Time     `json:"resolvedDate,omitempty"`
	ClosedDate    *time.Time     `json:"closedDate,omitempty"`
	AssignedTo    string         `json:"assignedTo,omitempty"`
	Resolution    string         `json:"resolution,omitempty"`
	Comments      []IssueComment `json:"comments"`
	Tags          []string       `json:"tags"`
}

type IssueComment struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	Content     string    `json:"content"`
	CreatedDate time.Time `json:"createdDate"`
	IsInternal  bool      `json:"isInternal"` // internal HR notes vs employee communication
}

type IssueRepository interface {
	Create(ctx context.Context, i *Issue) error
	Upsert(ctx context.Context, i *Issue) error
	GetByID(ctx context.Context, id string) (*Issue, error)
	List(ctx context.Context) ([]*Issue, error)
	// ListByEmployee returns issues newest submission first.
	ListByEmployee(ctx context.Context, employeeID string) ([]*Issue, error)
	// Search matches any of the terms against title and description of one employee's issues.
	Search(ctx context.Context, employeeID string, terms []string, limit int) ([]*Issue, error)
}
