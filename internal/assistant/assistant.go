// Package assistant defines the HR assistant agent: its prompt, the
// employeeId parameter every conversation binds, the read-only queries it
// may run and the actions it may request.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/domain"
)

const (
	// AgentID identifies the HR assistant in the engine.
	AgentID = "hr-assistant"
	// ParamEmployeeID is the bound parameter every query is scoped by.
	ParamEmployeeID = "employeeId"

	ActionRaiseIssue   = "RaiseIssue"
	ActionSignDocument = "SignDocument"

	resultLimit = 5
	dateLayout  = "2006-01-02"
)

const systemPrompt = `You are an HR assistant.
Provide info on benefits, policies, and departments.
Be professional and cheery.

You can answer in markdown format, make sure to use ticks (` + "`" + `) whenever you discuss identifiers.
Do not suggest actions that are not explicitly allowed by the tools available to you.

Do NOT discuss non-HR topics. Answer only for the current employee.

When the employee needs to sign a document, find it with ListSignatureDocuments and call
SignDocument with its id. The employee signs outside of this conversation and you will
receive the outcome as the tool result.`

// Stores are the record repositories the queries read from.
type Stores struct {
	Employees          domain.EmployeeRepository
	Vacations          domain.VacationRepository
	PayStubs           domain.PayStubRepository
	Issues             domain.IssueRepository
	Policies           domain.PolicyRepository
	SignatureDocuments domain.SignatureDocumentRepository
}

// RaiseIssueArgs are the arguments of the RaiseIssue action.
type RaiseIssueArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

// SignDocumentArgs are the arguments of the SignDocument action. Some models
// capitalize the key, so both spellings are accepted.
type SignDocumentArgs struct {
	Document string `json:"document"`
}

func (a *SignDocumentArgs) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err //nolint:wrapcheck // decoded by the caller
	}
	for _, key := range []string{"document", "Document"} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &a.Document); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}
	return nil
}

// New returns the HR assistant definition reading from stores.
func New(stores Stores) *agent.Definition {
	q := &queries{stores: stores}

	return &agent.Definition{
		ID:           AgentID,
		Name:         "HR Assistant",
		SystemPrompt: systemPrompt,
		Parameters: []agent.Parameter{
			{Name: ParamEmployeeID, Description: "Employee ID; answer only for this employee"},
		},
		Queries: []agent.Query{
			{
				Name:        "GetEmployeeInfo",
				Description: "Retrieve employee details",
				Run:         q.employeeInfo,
			},
			{
				Name:        "GetVacations",
				Description: "Retrieve recent employee vacation details",
				Run:         q.vacations,
			},
			{
				Name:        "GetPayStubs",
				Description: "Retrieve employee's paystubs within a given date range",
				Schema: object(map[string]any{
					"startDate": map[string]any{"type": "string", "description": "yyyy-MM-dd"},
					"endDate":   map[string]any{"type": "string", "description": "yyyy-MM-dd"},
				}, "startDate", "endDate"),
				Run: q.payStubs,
			},
			{
				Name:        "FindIssues",
				Description: "Search the employee's HR issues",
				Schema:      searchSchema("query terms to find matching issues"),
				Run:         q.issues,
			},
			{
				Name:        "FindPolicies",
				Description: "Search the employer's HR policies",
				Schema:      searchSchema("query terms to find matching policies"),
				Run:         q.policies,
			},
			{
				Name:        "ListSignatureDocuments",
				Description: "List the documents employees can be asked to sign",
				Run:         q.signatureDocuments,
			},
		},
		Actions: []agent.Action{
			{
				Name:        ActionRaiseIssue,
				Description: "Raise a new HR issue for the employee (full details)",
				Schema:      raiseIssueSchema(),
			},
			{
				Name:        ActionSignDocument,
				Description: "Ask the employee to sign a document. Pass the document id from ListSignatureDocuments",
				Schema: object(map[string]any{
					"document": map[string]any{"type": "string", "description": "Signature document id"},
				}),
			},
		},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func searchSchema(description string) map[string]any {
	return object(map[string]any{
		"query": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": description,
		},
	}, "query")
}

func raiseIssueSchema() map[string]any {
	priorities := make([]string, 0, 4)
	for _, p := range domain.IssuePriorities() {
		priorities = append(priorities, string(p))
	}

	return object(map[string]any{
		"title":       map[string]any{"type": "string", "minLength": 1, "description": "Clear & short title describing the issue"},
		"description": map[string]any{"type": "string", "minLength": 1, "description": "Full description, with all relevant context"},
		"category":    map[string]any{"type": "string", "description": "Payroll | Facilities | Onboarding | Benefits"},
		"priority":    map[string]any{"type": "string", "enum": priorities},
	}, "title", "description", "category", "priority")
}

type queries struct {
	stores Stores
}

func (q *queries) employeeInfo(ctx context.Context, params map[string]string, _ json.RawMessage) (any, error) {
	e, err := q.stores.Employees.GetByID(ctx, params[ParamEmployeeID])
	if err != nil {
		return nil, fmt.Errorf("assistant.GetEmployeeInfo: %w", err)
	}
	return e, nil
}

func (q *queries) vacations(ctx context.Context, params map[string]string, _ json.RawMessage) (any, error) {
	v, err := q.stores.Vacations.ListRecentByEmployee(ctx, params[ParamEmployeeID], resultLimit)
	if err != nil {
		return nil, fmt.Errorf("assistant.GetVacations: %w", err)
	}
	return v, nil
}

// payStubView omits the identifiers the model has no use for.
type payStubView struct {
	PayPeriodStart  time.Time        `json:"payPeriodStart"`
	PayPeriodEnd    time.Time        `json:"payPeriodEnd"`
	PayDate         time.Time        `json:"payDate"`
	GrossPay        float64          `json:"grossPay"`
	NetPay          float64          `json:"netPay"`
	Earnings        []domain.PayLine `json:"earnings"`
	Deductions      []domain.PayLine `json:"deductions"`
	Taxes           []domain.PayLine `json:"taxes"`
	YearToDateGross float64          `json:"yearToDateGross"`
	YearToDateNet   float64          `json:"yearToDateNet"`
	PayPeriodNumber int              `json:"payPeriodNumber"`
	PayFrequency    string           `json:"payFrequency"`
}

func (q *queries) payStubs(ctx context.Context, params map[string]string, args json.RawMessage) (any, error) {
	var a struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := (agent.ActionCall{Name: "GetPayStubs", Arguments: args}).Bind(&a); err != nil {
		return nil, err //nolint:wrapcheck // already marked as invalid arguments
	}

	from, err := time.Parse(dateLayout, a.StartDate)
	if err != nil {
		return nil, fmt.Errorf("startDate %q: %w", a.StartDate, agent.ErrInvalidArguments)
	}
	to, err := time.Parse(dateLayout, a.EndDate)
	if err != nil {
		return nil, fmt.Errorf("endDate %q: %w", a.EndDate, agent.ErrInvalidArguments)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("endDate before startDate: %w", agent.ErrInvalidArguments)
	}
	// endDate is inclusive.
	to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)

	stubs, err := q.stores.PayStubs.ListByEmployeeBetween(ctx, params[ParamEmployeeID], from, to, resultLimit)
	if err != nil {
		return nil, fmt.Errorf("assistant.GetPayStubs: %w", err)
	}

	views := make([]payStubView, 0, len(stubs))
	for _, s := range stubs {
		views = append(views, payStubView{
			PayPeriodStart:  s.PayPeriodStart,
			PayPeriodEnd:    s.PayPeriodEnd,
			PayDate:         s.PayDate,
			GrossPay:        s.GrossPay,
			NetPay:          s.NetPay,
			Earnings:        s.Earnings,
			Deductions:      s.Deductions,
			Taxes:           s.Taxes,
			YearToDateGross: s.YearToDateGross,
			YearToDateNet:   s.YearToDateNet,
			PayPeriodNumber: s.PayPeriodNumber,
			PayFrequency:    s.PayFrequency,
		})
	}
	return views, nil
}

func searchTerms(name string, args json.RawMessage) ([]string, error) {
	var a struct {
		Query []string `json:"query"`
	}
	if err := (agent.ActionCall{Name: name, Arguments: args}).Bind(&a); err != nil {
		return nil, err //nolint:wrapcheck // already marked as invalid arguments
	}
	return a.Query, nil
}

func (q *queries) issues(ctx context.Context, params map[string]string, args json.RawMessage) (any, error) {
	terms, err := searchTerms("FindIssues", args)
	if err != nil {
		return nil, err
	}

	issues, err := q.stores.Issues.Search(ctx, params[ParamEmployeeID], terms, resultLimit)
	if err != nil {
		return nil, fmt.Errorf("assistant.FindIssues: %w", err)
	}
	return issues, nil
}

func (q *queries) policies(ctx context.Context, _ map[string]string, args json.RawMessage) (any, error) {
	terms, err := searchTerms("FindPolicies", args)
	if err != nil {
		return nil, err
	}

	policies, err := q.stores.Policies.Search(ctx, terms, resultLimit)
	if err != nil {
		return nil, fmt.Errorf("assistant.FindPolicies: %w", err)
	}
	return policies, nil
}

type documentView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Version     int    `json:"version"`
	Description string `json:"description,omitempty"`
}

func (q *queries) signatureDocuments(ctx context.Context, _ map[string]string, _ json.RawMessage) (any, error) {
	docs, err := q.stores.SignatureDocuments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("assistant.ListSignatureDocuments: %w", err)
	}

	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, documentView{ID: d.ID, Title: d.Title, Version: d.Version, Description: d.Description})
	}
	return views, nil
}
