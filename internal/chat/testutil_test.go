package chat_test

import (
	"context"
	"sync"
	"time"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

type mockEmployeeRepo struct {
	domain.EmployeeRepository
	getByIDFunc           func(ctx context.Context, id string) (*domain.Employee, error)
	addSignedDocumentFunc func(ctx context.Context, employeeID string, doc *domain.SignedDocument, a *domain.Attachment) error
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockEmployeeRepo) AddSignedDocument(ctx context.Context, employeeID string, doc *domain.SignedDocument, a *domain.Attachment) error {
	return m.addSignedDocumentFunc(ctx, employeeID, doc, a)
}

type mockIssueRepo struct {
	domain.IssueRepository
	createFunc func(ctx context.Context, i *domain.Issue) error
}

func (m *mockIssueRepo) Create(ctx context.Context, i *domain.Issue) error {
	return m.createFunc(ctx, i)
}

type mockSignatureDocumentRepo struct {
	domain.SignatureDocumentRepository
	getByIDFunc func(ctx context.Context, id string) (*domain.SignatureDocument, error)
}

func (m *mockSignatureDocumentRepo) GetByID(ctx context.Context, id string) (*domain.SignatureDocument, error) {
	return m.getByIDFunc(ctx, id)
}

type mockConversationRepo struct {
	getFunc           func(ctx context.Context, id string) (*domain.Conversation, error)
	saveFunc          func(ctx context.Context, c *domain.Conversation) error
	deleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockConversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return m.getFunc(ctx, id)
}

func (m *mockConversationRepo) Save(ctx context.Context, c *domain.Conversation) error {
	return m.saveFunc(ctx, c)
}

func (m *mockConversationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return m.deleteExpiredFunc(ctx, now)
}

// ---------------------------------------------------------------------------
// Fake engine. runFunc plays the model: it may invoke the registered handlers.
// ---------------------------------------------------------------------------

type fakeEngine struct {
	conversationFunc func(ctx context.Context, agentID, id string, opts agent.ConversationOptions) (agent.Conversation, error)
}

func (e *fakeEngine) Conversation(ctx context.Context, agentID, id string, opts agent.ConversationOptions) (agent.Conversation, error) {
	return e.conversationFunc(ctx, agentID, id, opts)
}

type fakeConversation struct {
	id       string
	params   map[string]string
	known    map[string]bool // outstanding tool ids
	required []agent.RequiredAction

	responses []chat.Signature
	prompt    string
	handlers  map[string]agent.ActionHandler

	runFunc func(ctx context.Context, c *fakeConversation, onChunk agent.ChunkFunc) (*agent.Result, error)
}

func (c *fakeConversation) ID() string { return c.id }

func (c *fakeConversation) AddActionResponse(toolID, content string) error {
	if !c.known[toolID] {
		return agent.ErrUnknownAction
	}
	c.responses = append(c.responses, chat.Signature{ToolID: toolID, Content: content})
	return nil
}

func (c *fakeConversation) SetUserPrompt(p string) { c.prompt = p }

func (c *fakeConversation) Handle(name string, h agent.ActionHandler) error {
	if c.handlers == nil {
		c.handlers = make(map[string]agent.ActionHandler)
	}
	c.handlers[name] = h
	return nil
}

func (c *fakeConversation) Run(ctx context.Context) (*agent.Result, error) {
	return c.runFunc(ctx, c, nil)
}

func (c *fakeConversation) Stream(ctx context.Context, onChunk agent.ChunkFunc) (*agent.Result, error) {
	return c.runFunc(ctx, c, onChunk)
}

func (c *fakeConversation) RequiredActions() []agent.RequiredAction { return c.required }

// invoke calls a registered handler the way the engine would.
func (c *fakeConversation) invoke(ctx context.Context, toolID, name, args string) (agent.Outcome, error) {
	return c.handlers[name](ctx, agent.ActionCall{
		ToolID:     toolID,
		Name:       name,
		Arguments:  []byte(args),
		Parameters: c.params,
	})
}

// ---------------------------------------------------------------------------
// Recording publisher and notifier
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]any
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, channel string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]any)
	}
	p.events[channel] = append(p.events[channel], v)
	return p.err
}

// blockingPublisher holds every event until release is closed.
type blockingPublisher struct {
	release chan struct{}

	mu     sync.Mutex
	events []chat.Event
}

func (p *blockingPublisher) PublishJSON(_ context.Context, _ string, v any) error {
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, v.(chat.Event))
	return nil
}

func (p *blockingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type mockNotifier struct {
	issueRaisedFunc func(ctx context.Context, issue *domain.Issue) error
}

func (m *mockNotifier) IssueRaised(ctx context.Context, issue *domain.Issue) error {
	return m.issueRaisedFunc(ctx, issue)
}
