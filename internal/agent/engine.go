package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
	"github.com/tmc/langchaingo/llms"

	"github.com/gosuda/hrdesk/internal/domain"
)

// ParametersMarker starts the user turn that records a conversation's bound parameters.
const ParametersMarker = "AI Agent Parameters"

// AbandonedContent is the tool result recorded for an action the user moved past.
const AbandonedContent = "Action abandoned: the user sent a new message before it was completed."

const defaultMaxSteps = 8

type registeredAgent struct {
	def      *Definition
	registry *Registry
	tools    []llms.Tool
}

// LLMEngine runs agents against a langchaingo chat model and persists
// conversations through a domain.ConversationRepository.
type LLMEngine struct {
	model    llms.Model
	store    domain.ConversationRepository
	maxSteps int
	now      func() time.Time

	mu     sync.RWMutex
	agents map[string]*registeredAgent
}

type EngineOption func(*LLMEngine)

// WithMaxSteps bounds the number of model calls per exchange.
func WithMaxSteps(n int) EngineOption {
	return func(e *LLMEngine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *LLMEngine) { e.now = now }
}

func NewLLMEngine(model llms.Model, store domain.ConversationRepository, opts ...EngineOption) *LLMEngine {
	e := &LLMEngine{
		model:    model,
		store:    store,
		maxSteps: defaultMaxSteps,
		now:      time.Now,
		agents:   make(map[string]*registeredAgent),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds an agent definition, replacing any with the same id.
func (e *LLMEngine) Register(def *Definition) error {
	if err := def.validate(); err != nil {
		return fmt.Errorf("agent.LLMEngine.Register: %w", err)
	}

	registry, err := NewRegistry(def.Actions)
	if err != nil {
		return fmt.Errorf("agent.LLMEngine.Register: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[def.ID] = &registeredAgent{def: def, registry: registry, tools: def.tools()}

	log.Debug().
		Str("agent_id", def.ID).
		Int("queries", len(def.Queries)).
		Strs("actions", registry.Available()).
		Msg("agent registered")

	return nil
}

// Available returns registered agent ids in sorted order.
func (e *LLMEngine) Available() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := slices.Collect(func(yield func(string) bool) {
		for name := range e.agents {
			if !yield(name) {
				return
			}
		}
	})
	sort.Strings(names)

	return names
}

func (e *LLMEngine) Conversation(ctx context.Context, agentID, conversationID string, opts ConversationOptions) (Conversation, error) {
	e.mu.RLock()
	ag, ok := e.agents[agentID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("agent.LLMEngine.Conversation(%q): %w", agentID, ErrUnknownAgent)
	}

	params := make(map[string]string, len(ag.def.Parameters))
	for _, p := range ag.def.Parameters {
		v := opts.Parameters[p.Name]
		if v == "" {
			return nil, fmt.Errorf("agent.LLMEngine.Conversation: %q: %w", p.Name, ErrMissingParameter)
		}
		params[p.Name] = v
	}

	state, err := e.store.Get(ctx, conversationID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		state, err = e.newState(ag.def, agentID, conversationID, params)
		if err != nil {
			return nil, fmt.Errorf("agent.LLMEngine.Conversation: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("agent.LLMEngine.Conversation: %w", err)
	default:
		if state.AgentID != agentID {
			return nil, fmt.Errorf("agent.LLMEngine.Conversation: conversation belongs to %q: %w", state.AgentID, ErrParameterMismatch)
		}
		for k, v := range params {
			if state.Parameters[k] != v {
				return nil, fmt.Errorf("agent.LLMEngine.Conversation: %q: %w", k, ErrParameterMismatch)
			}
		}
	}

	return &llmConversation{
		engine:     e,
		agent:      ag,
		registry:   ag.registry.Fork(),
		state:      state,
		expiration: opts.Expiration,
	}, nil
}

func (e *LLMEngine) newState(def *Definition, agentID, id string, params map[string]string) (*domain.Conversation, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal parameters: %w", err)
	}

	now := e.now()
	return &domain.Conversation{
		ID:         id,
		AgentID:    agentID,
		Parameters: params,
		Turns: []domain.Turn{
			{Role: domain.RoleSystem, Content: def.SystemPrompt + replyInstructions, Date: now},
			{Role: domain.RoleUser, Content: ParametersMarker + ": " + string(encoded), Date: now},
		},
		Pending:   []domain.PendingAction{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type actionResponse struct {
	toolID  string
	content string
}

type llmConversation struct {
	engine     *LLMEngine
	agent      *registeredAgent
	registry   *Registry
	state      *domain.Conversation
	expiration time.Duration

	responses []actionResponse
	prompt    string
}

func (c *llmConversation) ID() string { return c.state.ID }

func (c *llmConversation) AddActionResponse(toolID, content string) error {
	for _, r := range c.responses {
		if r.toolID == toolID {
			return fmt.Errorf("agent.Conversation.AddActionResponse(%q): already answered: %w", toolID, ErrUnknownAction)
		}
	}

	for _, p := range c.state.Outstanding() {
		if p.ToolID == toolID {
			c.responses = append(c.responses, actionResponse{toolID: toolID, content: content})
			return nil
		}
	}

	return fmt.Errorf("agent.Conversation.AddActionResponse(%q): %w", toolID, ErrUnknownAction)
}

func (c *llmConversation) SetUserPrompt(prompt string) {
	c.prompt = prompt
}

func (c *llmConversation) Handle(name string, handler ActionHandler) error {
	return c.registry.Handle(name, handler)
}

func (c *llmConversation) Run(ctx context.Context) (*Result, error) {
	return c.exchange(ctx, nil)
}

func (c *llmConversation) Stream(ctx context.Context, onChunk ChunkFunc) (*Result, error) {
	return c.exchange(ctx, onChunk)
}

func (c *llmConversation) RequiredActions() []RequiredAction {
	return requiredFrom(c.state)
}

// exchange runs one exchange on a copy of the state. The copy replaces the
// state only after it has been saved.
func (c *llmConversation) exchange(ctx context.Context, onChunk ChunkFunc) (*Result, error) {
	if len(c.responses) == 0 && c.prompt == "" {
		return &Result{Required: requiredFrom(c.state)}, nil
	}

	work := c.state.Clone()
	now := c.engine.now()

	for _, r := range c.responses {
		resolvePending(work, r.toolID, domain.PendingActionResolved, r.content, now)
	}
	if c.prompt != "" {
		for _, p := range work.Outstanding() {
			resolvePending(work, p.ToolID, domain.PendingActionAbandoned, AbandonedContent, now)
		}
		work.Turns = append(work.Turns, domain.Turn{Role: domain.RoleUser, Content: c.prompt, Date: now})
	}

	// Some earlier actions are still unanswered: the transcript cannot be sent yet.
	if len(work.Outstanding()) > 0 {
		if err := c.save(ctx, work); err != nil {
			return nil, err
		}
		return &Result{Required: requiredFrom(work)}, nil
	}

	var extractor answerExtractor
	for step := 1; step <= c.engine.maxSteps; step++ {
		opts := []llms.CallOption{llms.WithTools(c.agent.tools)}
		if onChunk != nil {
			extractor.Reset()
			opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if text := extractor.Feed(chunk); text != "" {
					return onChunk(ctx, text)
				}
				return nil
			}))
		}

		resp, err := c.engine.model.GenerateContent(ctx, toMessages(work.Turns), opts...)
		if err != nil {
			return nil, fmt.Errorf("agent.Conversation.exchange: step %d: %w", step, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("agent.Conversation.exchange: step %d: no choices: %w", step, ErrMalformedReply)
		}
		choice := resp.Choices[0]
		now = c.engine.now()

		if len(choice.ToolCalls) == 0 {
			reply, normalized, err := parseReply(choice.Content)
			if err != nil {
				return nil, fmt.Errorf("agent.Conversation.exchange: step %d: %w", step, err)
			}
			work.Turns = append(work.Turns, domain.Turn{Role: domain.RoleAssistant, Content: normalized, Date: now})
			if err := c.save(ctx, work); err != nil {
				return nil, err
			}
			return &Result{Reply: reply}, nil
		}

		calls := make([]domain.ToolCall, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			calls = append(calls, domain.ToolCall{ID: tc.ID, Name: tc.FunctionCall.Name, Arguments: tc.FunctionCall.Arguments})
		}
		work.Turns = append(work.Turns, domain.Turn{
			Role: domain.RoleAssistant, Content: choice.Content, Date: now, ToolCalls: calls,
		})

		log.Debug().
			Str("conversation_id", work.ID).
			Int("step", step).
			Int("tool_calls", len(calls)).
			Msg("agent step requested tools")

		err = c.runTools(ctx, work, calls, now)
		if err != nil {
			return nil, err
		}

		if len(work.Outstanding()) > 0 {
			if err := c.save(ctx, work); err != nil {
				return nil, err
			}
			return &Result{Required: requiredFrom(work)}, nil
		}
	}

	return nil, fmt.Errorf("agent.Conversation.exchange: %d steps: %w", c.engine.maxSteps, ErrTooManySteps)
}

type toolOutcome struct {
	content  string
	deferred bool
	err      error
}

// runTools executes one step's tool calls. Queries run concurrently, actions
// run in call order, and results are appended in call order.
func (c *llmConversation) runTools(ctx context.Context, work *domain.Conversation, calls []domain.ToolCall, now time.Time) error {
	outcomes := iter.Map(calls, func(call *domain.ToolCall) toolOutcome {
		q, ok := c.agent.def.query(call.Name)
		if !ok {
			return toolOutcome{}
		}
		return c.runQuery(ctx, q, work.Parameters, call)
	})

	for i := range calls {
		call := calls[i]
		if _, isQuery := c.agent.def.query(call.Name); isQuery {
			continue
		}
		if !c.registry.Declared(call.Name) {
			outcomes[i] = toolOutcome{content: fmt.Sprintf("Unknown tool %q.", call.Name)}
			continue
		}

		outcome, err := c.registry.Dispatch(ctx, ActionCall{
			ToolID:     call.ID,
			Name:       call.Name,
			Arguments:  json.RawMessage(call.Arguments),
			Parameters: work.Parameters,
		})
		if err != nil {
			return fmt.Errorf("agent.Conversation.runTools: %w", err)
		}
		outcomes[i] = toolOutcome{content: outcome.Result(), deferred: outcome.Deferred()}
	}

	for i, call := range calls {
		o := outcomes[i]
		if o.err != nil {
			return fmt.Errorf("agent.Conversation.runTools: %s: %w", call.Name, o.err)
		}
		if o.deferred {
			work.Pending = append(work.Pending, domain.PendingAction{
				ToolID:    call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
				Status:    domain.PendingActionPending,
				CreatedAt: now,
			})
			continue
		}
		work.Turns = append(work.Turns, domain.Turn{
			Role: domain.RoleTool, Content: o.content, Date: now, ToolCallID: call.ID, Name: call.Name,
		})
	}

	return nil
}

func (c *llmConversation) runQuery(ctx context.Context, q *Query, params map[string]string, call *domain.ToolCall) toolOutcome {
	args := json.RawMessage(call.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	v, err := q.Run(ctx, params, args)
	if errors.Is(err, ErrInvalidArguments) {
		return toolOutcome{content: fmt.Sprintf("Invalid arguments for %s: %s", call.Name, err)}
	}
	if err != nil {
		return toolOutcome{err: err}
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return toolOutcome{err: fmt.Errorf("encode result: %w", err)}
	}

	return toolOutcome{content: string(encoded)}
}

func (c *llmConversation) save(ctx context.Context, work *domain.Conversation) error {
	now := c.engine.now()
	work.UpdatedAt = now
	work.ExpiresAt = now.Add(c.expiration)

	if err := c.engine.store.Save(ctx, work); err != nil {
		return fmt.Errorf("agent.Conversation.save: %w", err)
	}

	c.state = work
	c.responses = nil
	c.prompt = ""

	return nil
}

// resolvePending closes the pending action and records its tool turn.
func resolvePending(work *domain.Conversation, toolID string, status domain.PendingActionStatus, content string, now time.Time) {
	for i := range work.Pending {
		p := &work.Pending[i]
		if p.ToolID != toolID || p.Status != domain.PendingActionPending {
			continue
		}
		p.Status = status
		work.Turns = append(work.Turns, domain.Turn{
			Role: domain.RoleTool, Content: content, Date: now, ToolCallID: toolID, Name: p.Name,
		})
		return
	}
}

func requiredFrom(state *domain.Conversation) []RequiredAction {
	outstanding := state.Outstanding()
	required := make([]RequiredAction, 0, len(outstanding))
	for _, p := range outstanding {
		required = append(required, RequiredAction{
			ToolID:    p.ToolID,
			Name:      p.Name,
			Arguments: json.RawMessage(p.Arguments),
		})
	}
	return required
}

// toMessages converts stored turns to the model's message format.
func toMessages(turns []domain.Turn) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, t.Content))
		case domain.RoleUser:
			msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, t.Content))
		case domain.RoleAssistant:
			msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if t.Content != "" {
				msg.Parts = append(msg.Parts, llms.TextPart(t.Content))
			}
			for _, tc := range t.ToolCalls {
				msg.Parts = append(msg.Parts, llms.ToolCall{
					ID:           tc.ID,
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
				})
			}
			msgs = append(msgs, msg)
		case domain.RoleTool:
			msgs = append(msgs, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: t.ToolCallID,
					Name:       t.Name,
					Content:    t.Content,
				}},
			})
		}
	}
	return msgs
}
