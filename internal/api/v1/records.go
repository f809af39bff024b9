package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/hrdesk/internal/domain"
	"github.com/gosuda/hrdesk/internal/server/middleware"
)

const (
	policySearchLimit = 20
	vacationListLimit = 100
)

type ListDepartmentsOutput struct {
	Body []*domain.Department
}

type ListPoliciesInput struct {
	Query string `query:"q" doc:"Search terms separated by spaces"`
}

type ListPoliciesOutput struct {
	Body []*domain.Policy
}

type EmployeeFilterInput struct {
	EmployeeID string `query:"employeeId" doc:"Restrict to one employee"`
}

type ListVacationsOutput struct {
	Body []*domain.VacationRequest
}

type ListPayStubsOutput struct {
	Body []*domain.PayStub
}

type ListIssuesOutput struct {
	Body []*domain.Issue
}

type RecordKeyInput struct {
	Key string `path:"key" doc:"Record key"`
}

type GetIssueOutput struct {
	Body *domain.Issue
}

type ListSignatureDocumentsOutput struct {
	Body []*domain.SignatureDocument
}

type GetSignatureDocumentOutput struct {
	Body *domain.SignatureDocument
}

func RegisterRecordRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-departments",
		Method:      http.MethodGet,
		Path:        "/departments",
		Summary:     "List departments",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, _ *struct{}) (*ListDepartmentsOutput, error) {
		departments, err := store.Departments().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list departments", err)
		}
		return &ListDepartmentsOutput{Body: departments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-policies",
		Method:      http.MethodGet,
		Path:        "/policies",
		Summary:     "List or search HR policies",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *ListPoliciesInput) (*ListPoliciesOutput, error) {
		var (
			policies []*domain.Policy
			err      error
		)
		if terms := strings.Fields(input.Query); len(terms) > 0 {
			policies, err = store.Policies().Search(ctx, terms, policySearchLimit)
		} else {
			policies, err = store.Policies().List(ctx)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list policies", err)
		}
		return &ListPoliciesOutput{Body: policies}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-vacations",
		Method:      http.MethodGet,
		Path:        "/vacations",
		Summary:     "List vacation requests",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *EmployeeFilterInput) (*ListVacationsOutput, error) {
		if input.EmployeeID == "" {
			if err := middleware.AuthorizeHR(ctx); err != nil {
				return nil, huma.Error403Forbidden("hr role required")
			}
			vacations, err := store.Vacations().List(ctx)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to list vacations", err)
			}
			return &ListVacationsOutput{Body: vacations}, nil
		}

		id := domain.EmployeeID(input.EmployeeID)
		if err := middleware.AuthorizeEmployee(ctx, id); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}
		vacations, err := store.Vacations().ListRecentByEmployee(ctx, id, vacationListLimit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list vacations", err)
		}
		return &ListVacationsOutput{Body: vacations}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-paystubs",
		Method:      http.MethodGet,
		Path:        "/paystubs/{key}",
		Summary:     "List an employee's pay stubs, newest first",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *EmployeeKeyInput) (*ListPayStubsOutput, error) {
		id := domain.EmployeeID(input.Key)
		if err := middleware.AuthorizeEmployee(ctx, id); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		stubs, err := store.PayStubs().ListByEmployee(ctx, id)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list pay stubs", err)
		}
		return &ListPayStubsOutput{Body: stubs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-issues",
		Method:      http.MethodGet,
		Path:        "/issues",
		Summary:     "List HR issues",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *EmployeeFilterInput) (*ListIssuesOutput, error) {
		if input.EmployeeID == "" {
			if err := middleware.AuthorizeHR(ctx); err != nil {
				return nil, huma.Error403Forbidden("hr role required")
			}
			issues, err := store.Issues().List(ctx)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to list issues", err)
			}
			return &ListIssuesOutput{Body: issues}, nil
		}

		id := domain.EmployeeID(input.EmployeeID)
		if err := middleware.AuthorizeEmployee(ctx, id); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}
		issues, err := store.Issues().ListByEmployee(ctx, id)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list issues", err)
		}
		return &ListIssuesOutput{Body: issues}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-issue",
		Method:      http.MethodGet,
		Path:        "/issues/{key}",
		Summary:     "Get an HR issue",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *RecordKeyInput) (*GetIssueOutput, error) {
		issue, err := store.Issues().GetByID(ctx, domain.QualifiedID(domain.CollectionIssues, input.Key))
		if err != nil {
			return nil, storeError(err, "issue not found", "failed to get issue")
		}
		// Report foreign issues as missing rather than revealing they exist.
		if err := middleware.AuthorizeEmployee(ctx, issue.EmployeeID); err != nil {
			return nil, huma.Error404NotFound("issue not found")
		}
		return &GetIssueOutput{Body: issue}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-signature-documents",
		Method:      http.MethodGet,
		Path:        "/signature-documents",
		Summary:     "List active signature documents",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, _ *struct{}) (*ListSignatureDocumentsOutput, error) {
		docs, err := store.SignatureDocuments().ListActive(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list signature documents", err)
		}
		return &ListSignatureDocumentsOutput{Body: docs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-signature-document",
		Method:      http.MethodGet,
		Path:        "/signature-documents/{key}",
		Summary:     "Get a signature document",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *RecordKeyInput) (*GetSignatureDocumentOutput, error) {
		doc, err := store.SignatureDocuments().GetByID(ctx, domain.QualifiedID(domain.CollectionSignatureDocuments, input.Key))
		if err != nil {
			return nil, storeError(err, "signature document not found", "failed to get signature document")
		}
		return &GetSignatureDocumentOutput{Body: doc}, nil
	})
}
