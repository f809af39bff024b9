package domain

import (
	"context"
	"time"
)

// Employee is an HR employee record. SignedDocuments is append-only.
type Employee struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Department      string           `json:"department"`
	EmploymentType  string           `json:"employmentType"`
	HireDate        time.Time        `json:"hireDate"`
	CriticalRole    bool             `json:"criticalRole"`
	JobTitle        string           `json:"jobTitle"`
	Email           string           `json:"email"`
	Building        string           `json:"building"`
	Vacation        VacationInfo     `json:"vacation"`
	SignedDocuments []SignedDocument `json:"signedDocuments"`
}

// EmployeeSummary is the reduced projection used by employee pickers.
type EmployeeSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	JobTitle   string `json:"jobTitle"`
	Email      string `json:"email"`
}

type VacationInfo struct {
	AnnualEntitlement float64           `json:"annualEntitlement"`
	AccruedDays       float64           `json:"accruedDays"`
	CarryOverDays     float64           `json:"carryOverDays"`
	Balance           float64           `json:"balance"`
	Cap               float64           `json:"cap"`
	History           []VacationHistory `json:"history"`
}

type VacationHistory struct {
	Year          int                   `json:"year"`
	UsedDays      float64               `json:"usedDays"`
	CarryOverUsed float64               `json:"carryOverUsed"`
	Requests      []VacationRequestInfo `json:"requests"`
}

type VacationRequestInfo struct {
	ID            string       `json:"id"`
	StartDate     time.Time    `json:"startDate"`
	EndDate       time.Time    `json:"endDate"`
	Days          int          `json:"days"`
	Reason        string       `json:"reason"`
	Status        string       `json:"status"`
	Replacement   *Replacement `json:"replacement,omitempty"`
	SubmittedDate time.Time    `json:"submittedDate"`
	ApprovedDate  *time.Time   `json:"approvedDate,omitempty"`
	ApprovedBy    string       `json:"approvedBy,omitempty"`
}

type Replacement struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
}

// SignatureMethodDigital marks signatures captured through the signature pad.
const SignatureMethodDigital = "Digital"

// SignedDocument records one confirmed signature. It is never mutated after creation.
type SignedDocument struct {
	ID                      string     `json:"id"`
	DocumentID              string     `json:"documentId"`
	DocumentTitle           string     `json:"documentTitle"`
	DocumentVersion         int        `json:"documentVersion"`
	SignedDate              time.Time  `json:"signedDate"`
	SignatureAttachmentName string     `json:"signatureAttachmentName,omitempty"`
	SignedBy                string     `json:"signedBy"`
	SignatureMethod         string     `json:"signatureMethod,omitempty"`
	ExpirationDate          *time.Time `json:"expirationDate,omitempty"`
	Notes                   string     `json:"notes,omitempty"`
}

// Attachment is a binary blob stored alongside an employee record.
type Attachment struct {
	EmployeeID  string
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

type EmployeeRepository interface {
	Upsert(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id string) (*Employee, error)
	List(ctx context.Context) ([]*Employee, error)
	ListSummaries(ctx context.Context) ([]*EmployeeSummary, error)
	ListSignedDocuments(ctx context.Context, employeeID string) ([]SignedDocument, error)
	// AddSignedDocument stores the attachment and appends the signed document atomically.
	AddSignedDocument(ctx context.Context, employeeID string, doc *SignedDocument, attachment *Attachment) error
	GetAttachment(ctx context.Context, employeeID, name string) (*Attachment, error)
}
