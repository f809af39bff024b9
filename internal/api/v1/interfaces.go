package v1

import (
	"context"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Employees() domain.EmployeeRepository
	Departments() domain.DepartmentRepository
	Policies() domain.PolicyRepository
	Vacations() domain.VacationRepository
	PayStubs() domain.PayStubRepository
	Issues() domain.IssueRepository
	SignatureDocuments() domain.SignatureDocumentRepository
}

// ChatService abstracts chat turns for handler testing.
// *chat.Orchestrator satisfies this interface.
type ChatService interface {
	RunTurn(ctx context.Context, req chat.TurnRequest) (*chat.ChatResponse, error)
	StreamTurn(ctx context.Context, req chat.TurnRequest, onChunk agent.ChunkFunc) (*chat.ChatResponse, error)
	History(ctx context.Context, employeeID string) (*chat.ChatHistory, error)
}

// DocumentSigner abstracts signature recording for handler testing.
// *chat.Signer satisfies this interface.
type DocumentSigner interface {
	Sign(ctx context.Context, req chat.SignRequest) (*chat.SignResult, error)
}

// Seeder loads the demo data set. *seed.Loader satisfies this interface.
type Seeder interface {
	Seed(ctx context.Context) (map[string]int, error)
}
