package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/assistant"
	"github.com/gosuda/hrdesk/internal/domain"
)

// handlers are the action handlers of one exchange.
type handlers struct {
	orchestrator *Orchestrator
	employee     *domain.Employee

	// pending holds the documents requested in this exchange, keyed by tool id.
	pending map[string]*domain.SignatureDocument
}

func (h *handlers) raiseIssue(ctx context.Context, call agent.ActionCall) (agent.Outcome, error) {
	var args assistant.RaiseIssueArgs
	if err := call.Bind(&args); err != nil {
		return agent.Outcome{}, err //nolint:wrapcheck // reported to the model
	}

	o := h.orchestrator
	issue := &domain.Issue{
		ID:            domain.QualifiedID(domain.CollectionIssues, o.newID()),
		EmployeeID:    h.employee.ID,
		EmployeeName:  h.employee.Name,
		Title:         args.Title,
		Description:   args.Description,
		Category:      args.Category,
		Priority:      domain.IssuePriority(args.Priority),
		Status:        domain.IssueStatusOpen,
		SubmittedDate: o.now(),
		Comments:      []domain.IssueComment{},
		Tags:          []string{},
	}
	if err := o.stores.Issues.Create(ctx, issue); err != nil {
		return agent.Outcome{}, fmt.Errorf("chat.raiseIssue: %w", err)
	}

	log.Info().
		Str("issue_id", issue.ID).
		Str("employee_id", issue.EmployeeID).
		Str("priority", string(issue.Priority)).
		Msg("hr issue raised")

	if o.notifier != nil {
		if err := o.notifier.IssueRaised(ctx, issue); err != nil {
			log.Warn().Err(err).Str("issue_id", issue.ID).Msg("notify hr channel")
		}
	}

	return agent.Complete("Raised issue: " + issue.ID), nil
}

func (h *handlers) signDocument(ctx context.Context, call agent.ActionCall) (agent.Outcome, error) {
	var args assistant.SignDocumentArgs
	if err := call.Bind(&args); err != nil {
		return agent.Outcome{}, err //nolint:wrapcheck // reported to the model
	}

	notFound := agent.Complete(documentNotFound(args.Document))
	if args.Document == "" {
		return notFound, nil
	}

	id := domain.QualifiedID(domain.CollectionSignatureDocuments, args.Document)
	doc, err := h.orchestrator.stores.SignatureDocuments.GetByID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return notFound, nil
	case err != nil:
		return agent.Outcome{}, fmt.Errorf("chat.signDocument: %w", err)
	}

	h.pending[call.ToolID] = doc
	return agent.Defer(), nil
}

func documentNotFound(id string) string {
	return fmt.Sprintf("Document %s was not found", id)
}
