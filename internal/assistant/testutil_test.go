package assistant_test

import (
	"context"
	"time"

	"github.com/gosuda/hrdesk/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock repositories. Only the methods the queries call carry a func field.
// ---------------------------------------------------------------------------

type mockEmployeeRepo struct {
	domain.EmployeeRepository
	getByIDFunc func(ctx context.Context, id string) (*domain.Employee, error)
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return m.getByIDFunc(ctx, id)
}

type mockVacationRepo struct {
	domain.VacationRepository
	listRecentFunc func(ctx context.Context, employeeID string, limit int) ([]*domain.VacationRequest, error)
}

func (m *mockVacationRepo) ListRecentByEmployee(ctx context.Context, employeeID string, limit int) ([]*domain.VacationRequest, error) {
	return m.listRecentFunc(ctx, employeeID, limit)
}

type mockPayStubRepo struct {
	domain.PayStubRepository
	betweenFunc func(ctx context.Context, employeeID string, from, to time.Time, limit int) ([]*domain.PayStub, error)
}

func (m *mockPayStubRepo) ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time, limit int) ([]*domain.PayStub, error) {
	return m.betweenFunc(ctx, employeeID, from, to, limit)
}

type mockIssueRepo struct {
	domain.IssueRepository
	searchFunc func(ctx context.Context, employeeID string, terms []string, limit int) ([]*domain.Issue, error)
}

func (m *mockIssueRepo) Search(ctx context.Context, employeeID string, terms []string, limit int) ([]*domain.Issue, error) {
	return m.searchFunc(ctx, employeeID, terms, limit)
}

type mockPolicyRepo struct {
	domain.PolicyRepository
	searchFunc func(ctx context.Context, terms []string, limit int) ([]*domain.Policy, error)
}

func (m *mockPolicyRepo) Search(ctx context.Context, terms []string, limit int) ([]*domain.Policy, error) {
	return m.searchFunc(ctx, terms, limit)
}

type mockSignatureDocumentRepo struct {
	domain.SignatureDocumentRepository
	listActiveFunc func(ctx context.Context) ([]*domain.SignatureDocument, error)
}

func (m *mockSignatureDocumentRepo) ListActive(ctx context.Context) ([]*domain.SignatureDocument, error) {
	return m.listActiveFunc(ctx)
}
