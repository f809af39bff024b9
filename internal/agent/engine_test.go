package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/domain"
)

// --- in-memory conversation store ---

type memStore struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation
	saves int
}

func newMemStore() *memStore {
	return &memStore{convs: make(map[string]*domain.Conversation)}
}

func (s *memStore) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *memStore) Save(_ context.Context, c *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.convs[c.ID]
	switch {
	case c.Version == 0 && ok:
		return domain.ErrConflict
	case c.Version != 0 && (!ok || stored.Version != c.Version):
		return domain.ErrConflict
	}
	c.Version++
	s.convs[c.ID] = c.Clone()
	s.saves++
	return nil
}

func (s *memStore) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *memStore) stored(t *testing.T, id string) *domain.Conversation {
	t.Helper()
	c, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

// --- scripted model ---

type step func(msgs []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error)

type scriptedModel struct {
	mu    sync.Mutex
	steps []step
	calls [][]llms.MessageContent
}

func (m *scriptedModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, msgs)
	m.mu.Unlock()

	if idx >= len(m.steps) {
		return nil, fmt.Errorf("unexpected model call %d", idx+1)
	}
	return m.steps[idx](msgs, opts)
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func answer(text string) step {
	return func([]llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
	}
}

func toolCalls(calls ...llms.ToolCall) step {
	return func([]llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: calls}}}, nil
	}
}

func call(id, name, args string) llms.ToolCall {
	return llms.ToolCall{ID: id, Type: "function", FunctionCall: &llms.FunctionCall{Name: name, Arguments: args}}
}

func failing(err error) step {
	return func([]llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return nil, err
	}
}

// --- fixtures ---

const convID = "hr/employees/ada/2025-03-01"

func testDefinition(seen *sync.Map) *agent.Definition {
	return &agent.Definition{
		ID:           "hr-assistant",
		SystemPrompt: "You are an HR assistant.",
		Parameters:   []agent.Parameter{{Name: "employeeId"}},
		Queries: []agent.Query{
			{
				Name: "GetVacations",
				Run: func(_ context.Context, params map[string]string, _ json.RawMessage) (any, error) {
					seen.Store("GetVacations", params["employeeId"])
					return []map[string]any{{"days": 3}}, nil
				},
			},
			{
				Name: "GetEmployeeInfo",
				Run: func(_ context.Context, params map[string]string, _ json.RawMessage) (any, error) {
					seen.Store("GetEmployeeInfo", params["employeeId"])
					return map[string]string{"id": params["employeeId"]}, nil
				},
			},
			{
				Name: "GetPayStubs",
				Run: func(_ context.Context, _ map[string]string, args json.RawMessage) (any, error) {
					var a struct {
						StartDate time.Time `json:"startDate"`
					}
					if err := (agent.ActionCall{Name: "GetPayStubs", Arguments: args}).Bind(&a); err != nil {
						return nil, err
					}
					return []string{}, nil
				},
			},
		},
		Actions: []agent.Action{
			{Name: "RaiseIssue"},
			{Name: "SignDocument"},
		},
	}
}

type fixture struct {
	store  *memStore
	model  *scriptedModel
	engine *agent.LLMEngine
	seen   *sync.Map
}

func newFixture(t *testing.T, steps ...step) *fixture {
	t.Helper()

	f := &fixture{
		store: newMemStore(),
		model: &scriptedModel{steps: steps},
		seen:  &sync.Map{},
	}
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.engine = agent.NewLLMEngine(f.model, f.store,
		agent.WithMaxSteps(3),
		agent.WithClock(func() time.Time { return clock }),
	)
	require.NoError(t, f.engine.Register(testDefinition(f.seen)))
	return f
}

func (f *fixture) open(t *testing.T) agent.Conversation {
	t.Helper()

	conv, err := f.engine.Conversation(context.Background(), "hr-assistant", convID, agent.ConversationOptions{
		Parameters: map[string]string{"employeeId": "employees/ada"},
		Expiration: 30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return conv
}

// --- tests ---

func TestLLMEngine_Conversation(t *testing.T) {
	t.Parallel()

	t.Run("unknown agent", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.engine.Conversation(context.Background(), "payroll", convID, agent.ConversationOptions{})
		require.ErrorIs(t, err, agent.ErrUnknownAgent)
	})

	t.Run("missing parameter", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.engine.Conversation(context.Background(), "hr-assistant", convID, agent.ConversationOptions{})
		require.ErrorIs(t, err, agent.ErrMissingParameter)
	})

	t.Run("other employee's conversation", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, answer(`{"answer":"Hi"}`))
		conv := f.open(t)
		conv.SetUserPrompt("hello")
		_, err := conv.Run(context.Background())
		require.NoError(t, err)

		_, err = f.engine.Conversation(context.Background(), "hr-assistant", convID, agent.ConversationOptions{
			Parameters: map[string]string{"employeeId": "employees/eve"},
		})
		require.ErrorIs(t, err, agent.ErrParameterMismatch)
	})

	t.Run("available", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		assert.Equal(t, []string{"hr-assistant"}, f.engine.Available())
	})
}

func TestLLMEngine_RunWithQueries(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		toolCalls(
			call("c1", "GetVacations", `{"employeeId":"employees/eve"}`),
			call("c2", "GetEmployeeInfo", `{}`),
		),
		answer("```json\n{\"answer\":\"You have 12 days.\",\"followups\":[\"Book leave\"]}\n```"),
	)

	conv := f.open(t)
	conv.SetUserPrompt("How much vacation do I have?")
	res, err := conv.Run(context.Background())
	require.NoError(t, err)

	require.False(t, res.Paused())
	assert.Equal(t, "You have 12 days.", res.Reply.Answer)
	assert.Equal(t, []string{"Book leave"}, res.Reply.Followups)
	assert.Empty(t, res.Required)

	// Queries read the bound parameter, never the model arguments.
	v, _ := f.seen.Load("GetVacations")
	assert.Equal(t, "employees/ada", v)

	stored := f.store.stored(t, convID)
	assert.Equal(t, int64(1), stored.Version)
	require.Len(t, stored.Turns, 7)
	assert.Equal(t, domain.RoleSystem, stored.Turns[0].Role)
	assert.Contains(t, stored.Turns[1].Content, agent.ParametersMarker)
	assert.Equal(t, "How much vacation do I have?", stored.Turns[2].Content)
	assert.Len(t, stored.Turns[3].ToolCalls, 2)
	assert.Equal(t, "c1", stored.Turns[4].ToolCallID)
	assert.Equal(t, "c2", stored.Turns[5].ToolCallID)
	assert.JSONEq(t, `{"answer":"You have 12 days.","followups":["Book leave"]}`, stored.Turns[6].Content)
	assert.Equal(t, time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC), stored.ExpiresAt)

	// The second model call sees the tool results.
	require.Equal(t, 2, f.model.callCount())
	last := f.model.calls[1]
	resp, ok := last[len(last)-1].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "c2", resp.ToolCallID)
}

func TestLLMEngine_InvalidQueryArgumentsReportedToModel(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		toolCalls(call("c1", "GetPayStubs", `{"startDate":"last month"}`)),
		answer(`{"answer":"Which dates?"}`),
	)

	conv := f.open(t)
	conv.SetUserPrompt("pay stubs please")
	res, err := conv.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Which dates?", res.Reply.Answer)

	stored := f.store.stored(t, convID)
	assert.Contains(t, stored.Turns[4].Content, "Invalid arguments for GetPayStubs")
}

func TestLLMEngine_DeferredActionRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		toolCalls(call("sign-1", "SignDocument", `{"document":"signaturedocuments/nda"}`)),
		answer(`{"answer":"Thanks for signing.","followups":[]}`),
	)

	conv := f.open(t)
	require.NoError(t, conv.Handle("SignDocument", func(context.Context, agent.ActionCall) (agent.Outcome, error) {
		return agent.Defer(), nil
	}))
	conv.SetUserPrompt("I need to sign the NDA")

	res, err := conv.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Paused())
	require.Len(t, res.Required, 1)
	assert.Equal(t, "sign-1", res.Required[0].ToolID)
	assert.Equal(t, "SignDocument", res.Required[0].Name)

	var args struct {
		Document string `json:"document"`
	}
	require.NoError(t, res.Required[0].Bind(&args))
	assert.Equal(t, "signaturedocuments/nda", args.Document)

	stored := f.store.stored(t, convID)
	require.Len(t, stored.Outstanding(), 1)

	// Resume in a new request.
	resumed := f.open(t)
	assert.Len(t, resumed.RequiredActions(), 1)
	require.ErrorIs(t, resumed.AddActionResponse("nope", "x"), agent.ErrUnknownAction)
	require.NoError(t, resumed.AddActionResponse("sign-1", "Signed by employee"))
	require.ErrorIs(t, resumed.AddActionResponse("sign-1", "again"), agent.ErrUnknownAction)

	res, err = resumed.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Thanks for signing.", res.Reply.Answer)
	assert.Empty(t, resumed.RequiredActions())

	stored = f.store.stored(t, convID)
	assert.Empty(t, stored.Outstanding())
	assert.Equal(t, domain.PendingActionResolved, stored.Pending[0].Status)

	var toolTurn *domain.Turn
	for i := range stored.Turns {
		if stored.Turns[i].ToolCallID == "sign-1" && stored.Turns[i].Role == domain.RoleTool {
			toolTurn = &stored.Turns[i]
		}
	}
	require.NotNil(t, toolTurn)
	assert.Equal(t, "Signed by employee", toolTurn.Content)
}

func TestLLMEngine_SynchronousActionDoesNotPause(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		toolCalls(call("ri-1", "RaiseIssue", `{"title":"Chair"}`)),
		answer(`{"answer":"Issue raised."}`),
	)

	conv := f.open(t)
	require.NoError(t, conv.Handle("RaiseIssue", func(_ context.Context, c agent.ActionCall) (agent.Outcome, error) {
		return agent.Complete("Raised issue: hrissues/1 for " + c.Parameters["employeeId"]), nil
	}))
	conv.SetUserPrompt("my chair is broken")

	res, err := conv.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Paused())
	assert.Empty(t, res.Required)

	stored := f.store.stored(t, convID)
	assert.Equal(t, "Raised issue: hrissues/1 for employees/ada", stored.Turns[4].Content)
}

func TestLLMEngine_NewPromptAbandonsPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		toolCalls(call("sign-1", "SignDocument", `{"document":"signaturedocuments/nda"}`)),
		answer(`{"answer":"Sure, what else?"}`),
	)

	conv := f.open(t)
	conv.SetUserPrompt("sign the NDA")
	_, err := conv.Run(context.Background())
	require.NoError(t, err)

	next := f.open(t)
	next.SetUserPrompt("actually, never mind")
	res, err := next.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Sure, what else?", res.Reply.Answer)

	stored := f.store.stored(t, convID)
	assert.Equal(t, domain.PendingActionAbandoned, stored.Pending[0].Status)

	n := len(stored.Turns)
	assert.Equal(t, domain.RoleTool, stored.Turns[n-3].Role)
	assert.Equal(t, agent.AbandonedContent, stored.Turns[n-3].Content)
	assert.Equal(t, "actually, never mind", stored.Turns[n-2].Content)
}

func TestLLMEngine_EmptyTurnDoesNotCallModel(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		toolCalls(call("sign-1", "SignDocument", `{"document":"signaturedocuments/nda"}`)),
	)

	conv := f.open(t)
	conv.SetUserPrompt("sign the NDA")
	_, err := conv.Run(context.Background())
	require.NoError(t, err)
	before := f.store.stored(t, convID)

	empty := f.open(t)
	res, err := empty.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Paused())
	require.Len(t, res.Required, 1)
	assert.Equal(t, 1, f.model.callCount())

	after := f.store.stored(t, convID)
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, after.Turns, len(before.Turns))
}

func TestLLMEngine_FailuresPersistNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		steps   []step
		wantErr error
	}{
		{"model error", []step{failing(errors.New("quota exceeded"))}, nil},
		{"malformed reply", []step{answer("You have 12 days.")}, agent.ErrMalformedReply},
		{"too many steps", []step{
			toolCalls(call("a", "GetVacations", `{}`)),
			toolCalls(call("b", "GetVacations", `{}`)),
			toolCalls(call("c", "GetVacations", `{}`)),
		}, agent.ErrTooManySteps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.steps...)
			conv := f.open(t)
			conv.SetUserPrompt("hello")

			_, err := conv.Run(context.Background())
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			_, err = f.store.Get(context.Background(), convID)
			require.ErrorIs(t, err, domain.ErrNotFound)
			assert.Zero(t, f.store.saves)
		})
	}
}

func TestLLMEngine_ConcurrentWriterConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		answer(`{"answer":"first"}`),
		answer(`{"answer":"second"}`),
		answer(`{"answer":"third"}`),
	)

	seed := f.open(t)
	seed.SetUserPrompt("hi")
	_, err := seed.Run(context.Background())
	require.NoError(t, err)

	a := f.open(t)
	b := f.open(t)
	a.SetUserPrompt("from tab a")
	b.SetUserPrompt("from tab b")

	_, err = a.Run(context.Background())
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestLLMEngine_Stream(t *testing.T) {
	t.Parallel()

	streamed := func(chunks ...string) step {
		return func(_ []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error) {
			var full string
			for _, c := range chunks {
				if err := opts.StreamingFunc(context.Background(), []byte(c)); err != nil {
					return nil, err
				}
				full += c
			}
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: full}}}, nil
		}
	}
	streamedTools := func(calls ...llms.ToolCall) step {
		return func(_ []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error) {
			raw, _ := json.Marshal(calls)
			if err := opts.StreamingFunc(context.Background(), raw); err != nil {
				return nil, err
			}
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: calls}}}, nil
		}
	}

	t.Run("chunks carry only answer text", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t,
			streamedTools(call("c1", "GetVacations", `{}`)),
			streamed(`{"ans`, `wer":"You have `, `12 days."`, `,"followups":["More"]}`),
		)
		conv := f.open(t)
		conv.SetUserPrompt("vacation?")

		var got []string
		res, err := conv.Stream(context.Background(), func(_ context.Context, text string) error {
			got = append(got, text)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"You have ", "12 days."}, got)
		assert.Equal(t, "You have 12 days.", res.Reply.Answer)
	})

	t.Run("chunk error aborts without saving", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, streamed(`{"answer":"partial`, ` more"}`))
		conv := f.open(t)
		conv.SetUserPrompt("hello")

		gone := errors.New("client gone")
		_, err := conv.Stream(context.Background(), func(context.Context, string) error { return gone })
		require.ErrorIs(t, err, gone)

		_, err = f.store.Get(context.Background(), convID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
