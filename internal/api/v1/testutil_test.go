package v1_test

import (
	"context"
	"time"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/auth"
	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/domain"
	"github.com/gosuda/hrdesk/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers - inject the principal into context for DoCtx
// ---------------------------------------------------------------------------

func employeeCtx(employeeID string) context.Context {
	return middleware.WithPrincipal(context.Background(), middleware.Principal{EmployeeID: employeeID, Role: auth.RoleEmployee})
}

func hrCtx() context.Context {
	return middleware.WithPrincipal(context.Background(), middleware.Principal{EmployeeID: "employees/grace", Role: auth.RoleHR})
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	employees   domain.EmployeeRepository
	departments domain.DepartmentRepository
	policies    domain.PolicyRepository
	vacations   domain.VacationRepository
	payStubs    domain.PayStubRepository
	issues      domain.IssueRepository
	documents   domain.SignatureDocumentRepository
}

func (m *mockDataStore) Employees() domain.EmployeeRepository                   { return m.employees }
func (m *mockDataStore) Departments() domain.DepartmentRepository               { return m.departments }
func (m *mockDataStore) Policies() domain.PolicyRepository                      { return m.policies }
func (m *mockDataStore) Vacations() domain.VacationRepository                   { return m.vacations }
func (m *mockDataStore) PayStubs() domain.PayStubRepository                     { return m.payStubs }
func (m *mockDataStore) Issues() domain.IssueRepository                         { return m.issues }
func (m *mockDataStore) SignatureDocuments() domain.SignatureDocumentRepository { return m.documents }

// ---------------------------------------------------------------------------
// Mock repositories. Unset funcs panic through the embedded nil interface.
// ---------------------------------------------------------------------------

type mockEmployeeRepo struct {
	domain.EmployeeRepository
	getByIDFunc             func(ctx context.Context, id string) (*domain.Employee, error)
	listFunc                func(ctx context.Context) ([]*domain.Employee, error)
	listSummariesFunc       func(ctx context.Context) ([]*domain.EmployeeSummary, error)
	listSignedDocumentsFunc func(ctx context.Context, employeeID string) ([]domain.SignedDocument, error)
	getAttachmentFunc       func(ctx context.Context, employeeID, name string) (*domain.Attachment, error)
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockEmployeeRepo) List(ctx context.Context) ([]*domain.Employee, error) {
	return m.listFunc(ctx)
}

func (m *mockEmployeeRepo) ListSummaries(ctx context.Context) ([]*domain.EmployeeSummary, error) {
	return m.listSummariesFunc(ctx)
}

func (m *mockEmployeeRepo) ListSignedDocuments(ctx context.Context, employeeID string) ([]domain.SignedDocument, error) {
	return m.listSignedDocumentsFunc(ctx, employeeID)
}

func (m *mockEmployeeRepo) GetAttachment(ctx context.Context, employeeID, name string) (*domain.Attachment, error) {
	return m.getAttachmentFunc(ctx, employeeID, name)
}

type mockDepartmentRepo struct {
	domain.DepartmentRepository
	listFunc func(ctx context.Context) ([]*domain.Department, error)
}

func (m *mockDepartmentRepo) List(ctx context.Context) ([]*domain.Department, error) {
	return m.listFunc(ctx)
}

type mockPolicyRepo struct {
	domain.PolicyRepository
	listFunc   func(ctx context.Context) ([]*domain.Policy, error)
	searchFunc func(ctx context.Context, terms []string, limit int) ([]*domain.Policy, error)
}

func (m *mockPolicyRepo) List(ctx context.Context) ([]*domain.Policy, error) {
	return m.listFunc(ctx)
}

func (m *mockPolicyRepo) Search(ctx context.Context, terms []string, limit int) ([]*domain.Policy, error) {
	return m.searchFunc(ctx, terms, limit)
}

type mockVacationRepo struct {
	domain.VacationRepository
	listFunc                 func(ctx context.Context) ([]*domain.VacationRequest, error)
	listRecentByEmployeeFunc func(ctx context.Context, employeeID string, limit int) ([]*domain.VacationRequest, error)
}

func (m *mockVacationRepo) List(ctx context.Context) ([]*domain.VacationRequest, error) {
	return m.listFunc(ctx)
}

func (m *mockVacationRepo) ListRecentByEmployee(ctx context.Context, employeeID string, limit int) ([]*domain.VacationRequest, error) {
	return m.listRecentByEmployeeFunc(ctx, employeeID, limit)
}

type mockPayStubRepo struct {
	domain.PayStubRepository
	listByEmployeeFunc func(ctx context.Context, employeeID string) ([]*domain.PayStub, error)
}

func (m *mockPayStubRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.PayStub, error) {
	return m.listByEmployeeFunc(ctx, employeeID)
}

type mockIssueRepo struct {
	domain.IssueRepository
	getByIDFunc        func(ctx context.Context, id string) (*domain.Issue, error)
	listFunc           func(ctx context.Context) ([]*domain.Issue, error)
	listByEmployeeFunc func(ctx context.Context, employeeID string) ([]*domain.Issue, error)
}

func (m *mockIssueRepo) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockIssueRepo) List(ctx context.Context) ([]*domain.Issue, error) {
	return m.listFunc(ctx)
}

func (m *mockIssueRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.Issue, error) {
	return m.listByEmployeeFunc(ctx, employeeID)
}

type mockSignatureDocumentRepo struct {
	domain.SignatureDocumentRepository
	getByIDFunc    func(ctx context.Context, id string) (*domain.SignatureDocument, error)
	listActiveFunc func(ctx context.Context) ([]*domain.SignatureDocument, error)
}

func (m *mockSignatureDocumentRepo) GetByID(ctx context.Context, id string) (*domain.SignatureDocument, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockSignatureDocumentRepo) ListActive(ctx context.Context) ([]*domain.SignatureDocument, error) {
	return m.listActiveFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock services
// ---------------------------------------------------------------------------

type mockChatService struct {
	runTurnFunc    func(ctx context.Context, req chat.TurnRequest) (*chat.ChatResponse, error)
	streamTurnFunc func(ctx context.Context, req chat.TurnRequest, onChunk agent.ChunkFunc) (*chat.ChatResponse, error)
	historyFunc    func(ctx context.Context, employeeID string) (*chat.ChatHistory, error)
}

func (m *mockChatService) RunTurn(ctx context.Context, req chat.TurnRequest) (*chat.ChatResponse, error) {
	return m.runTurnFunc(ctx, req)
}

func (m *mockChatService) StreamTurn(ctx context.Context, req chat.TurnRequest, onChunk agent.ChunkFunc) (*chat.ChatResponse, error) {
	return m.streamTurnFunc(ctx, req, onChunk)
}

func (m *mockChatService) History(ctx context.Context, employeeID string) (*chat.ChatHistory, error) {
	return m.historyFunc(ctx, employeeID)
}

type mockSigner struct {
	signFunc func(ctx context.Context, req chat.SignRequest) (*chat.SignResult, error)
}

func (m *mockSigner) Sign(ctx context.Context, req chat.SignRequest) (*chat.SignResult, error) {
	return m.signFunc(ctx, req)
}

type mockSeeder struct {
	seedFunc func(ctx context.Context) (map[string]int, error)
}

func (m *mockSeeder) Seed(ctx context.Context) (map[string]int, error) {
	return m.seedFunc(ctx)
}

var testTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture
