package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/hrdesk/internal/domain"
	"github.com/gosuda/hrdesk/internal/server/middleware"
)

type ListEmployeesOutput struct {
	Body []*domain.Employee
}

type ListEmployeeSummariesOutput struct {
	Body []*domain.EmployeeSummary
}

type EmployeeKeyInput struct {
	Key string `path:"key" doc:"Employee key"`
}

type GetEmployeeOutput struct {
	Body *domain.Employee
}

type ListSignedDocumentsOutput struct {
	Body []domain.SignedDocument
}

type GetAttachmentInput struct {
	Key  string `path:"key" doc:"Employee key"`
	Name string `path:"name" doc:"Attachment name"`
}

type GetAttachmentOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func RegisterEmployeeRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "List employee records",
		Tags:        []string{"Employees"},
	}, func(ctx context.Context, _ *struct{}) (*ListEmployeesOutput, error) {
		if err := middleware.AuthorizeHR(ctx); err != nil {
			return nil, huma.Error403Forbidden("hr role required")
		}

		employees, err := store.Employees().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list employees", err)
		}

		return &ListEmployeesOutput{Body: employees}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-employee-summaries",
		Method:      http.MethodGet,
		Path:        "/employees/dropdown",
		Summary:     "List employees for pickers",
		Tags:        []string{"Employees"},
	}, func(ctx context.Context, _ *struct{}) (*ListEmployeeSummariesOutput, error) {
		summaries, err := store.Employees().ListSummaries(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list employees", err)
		}

		return &ListEmployeeSummariesOutput{Body: summaries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-employee",
		Method:      http.MethodGet,
		Path:        "/employees/{key}",
		Summary:     "Get an employee record",
		Tags:        []string{"Employees"},
	}, func(ctx context.Context, input *EmployeeKeyInput) (*GetEmployeeOutput, error) {
		id := domain.EmployeeID(input.Key)
		if err := middleware.AuthorizeEmployee(ctx, id); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		e, err := store.Employees().GetByID(ctx, id)
		if err != nil {
			return nil, storeError(err, "employee not found", "failed to get employee")
		}

		return &GetEmployeeOutput{Body: e}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-signed-documents",
		Method:      http.MethodGet,
		Path:        "/employees/{key}/signed-documents",
		Summary:     "List the documents an employee has signed",
		Tags:        []string{"Employees"},
	}, func(ctx context.Context, input *EmployeeKeyInput) (*ListSignedDocumentsOutput, error) {
		id := domain.EmployeeID(input.Key)
		if err := middleware.AuthorizeEmployee(ctx, id); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		docs, err := store.Employees().ListSignedDocuments(ctx, id)
		if err != nil {
			return nil, storeError(err, "employee not found", "failed to list signed documents")
		}
		if docs == nil {
			docs = []domain.SignedDocument{}
		}

		return &ListSignedDocumentsOutput{Body: docs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-employee-attachment",
		Method:      http.MethodGet,
		Path:        "/employees/{key}/attachments/{name}",
		Summary:     "Download an employee attachment such as a signature image",
		Tags:        []string{"Employees"},
	}, func(ctx context.Context, input *GetAttachmentInput) (*GetAttachmentOutput, error) {
		id := domain.EmployeeID(input.Key)
		if err := middleware.AuthorizeEmployee(ctx, id); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		a, err := store.Employees().GetAttachment(ctx, id, input.Name)
		if err != nil {
			return nil, storeError(err, "attachment not found", "failed to get attachment")
		}

		return &GetAttachmentOutput{ContentType: a.ContentType, Body: a.Data}, nil
	})
}
