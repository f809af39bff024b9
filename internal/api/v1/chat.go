package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/domain"
	"github.com/gosuda/hrdesk/internal/server/middleware"
)

type ChatRequestBody struct {
	ConversationID string           `json:"conversationId,omitempty" doc:"Conversation ID; defaults to the employee's conversation of the day"`
	Message        string           `json:"message,omitempty" doc:"Employee message"`
	EmployeeID     string           `json:"employeeId" minLength:"1" doc:"Employee ID or key"`
	Signatures     []chat.Signature `json:"signatures,omitempty" doc:"Outcomes of pending signature requests"`
}

func (b *ChatRequestBody) turnRequest() chat.TurnRequest {
	return chat.TurnRequest{
		ConversationID: b.ConversationID,
		EmployeeID:     b.EmployeeID,
		Message:        b.Message,
		Signatures:     b.Signatures,
	}
}

type ChatInput struct {
	Body ChatRequestBody
}

type ChatOutput struct {
	Body *chat.ChatResponse
}

type ChatHistoryInput struct {
	Key string `path:"key" doc:"Employee key"`
}

type ChatHistoryOutput struct {
	Body *chat.ChatHistory
}

type SignDocumentInput struct {
	Body struct {
		ConversationID string `json:"conversationId,omitempty" doc:"Conversation the signature request belongs to"`
		EmployeeID     string `json:"employeeId" minLength:"1" doc:"Signing employee"`
		ToolID         string `json:"toolId,omitempty" doc:"ID of the SignDocument action"`
		DocumentID     string `json:"documentId" minLength:"1" doc:"Signature document ID"`
		Confirmed      bool   `json:"confirmed" doc:"Whether the employee signed"`
		SignatureBlob  string `json:"signatureBlob,omitempty" doc:"PNG signature, base64 or data URL"`
	}
}

type SignDocumentOutput struct {
	Body *chat.SignResult
}

func RegisterChatRoutes(api huma.API, svc ChatService, signer DocumentSigner) {
	huma.Register(api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/chat",
		Summary:     "Run one chat turn",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *ChatInput) (*ChatOutput, error) {
		if err := middleware.AuthorizeEmployee(ctx, input.Body.EmployeeID); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		resp, err := svc.RunTurn(ctx, input.Body.turnRequest())
		if err != nil {
			return nil, chatError(err)
		}

		return &ChatOutput{Body: resp}, nil
	})

	registerChatStream(api, svc)

	huma.Register(api, huma.Operation{
		OperationID: "get-chat-today",
		Method:      http.MethodGet,
		Path:        "/chat/today/employees/{key}",
		Summary:     "Get the employee's conversation of the day",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *ChatHistoryInput) (*ChatHistoryOutput, error) {
		employeeID := domain.EmployeeID(input.Key)
		if err := middleware.AuthorizeEmployee(ctx, employeeID); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		history, err := svc.History(ctx, employeeID)
		if err != nil {
			return nil, storeError(err, "conversation not found", "failed to load conversation")
		}

		return &ChatHistoryOutput{Body: history}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sign-document",
		Method:      http.MethodPost,
		Path:        "/sign-document",
		Summary:     "Record the outcome of a signature request",
		Tags:        []string{"Chat"},
	}, func(ctx context.Context, input *SignDocumentInput) (*SignDocumentOutput, error) {
		if err := middleware.AuthorizeEmployee(ctx, input.Body.EmployeeID); err != nil {
			return nil, huma.Error403Forbidden("access denied")
		}

		result, err := signer.Sign(ctx, chat.SignRequest{
			ConversationID: input.Body.ConversationID,
			EmployeeID:     input.Body.EmployeeID,
			ToolID:         input.Body.ToolID,
			DocumentID:     input.Body.DocumentID,
			Confirmed:      input.Body.Confirmed,
			SignatureBlob:  input.Body.SignatureBlob,
		})
		if err != nil {
			return nil, chatError(err)
		}

		return &SignDocumentOutput{Body: result}, nil
	})
}
