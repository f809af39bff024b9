package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/config"
	"github.com/gosuda/hrdesk/internal/domain"
)

var (
	// 23:30 UTC is already the next day in Seoul.
	testNow = time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)               //nolint:gochecknoglobals // test fixture
	ada     = &domain.Employee{ID: "employees/ada", Name: "Ada Lovelace"} //nolint:gochecknoglobals // test fixture
	nda     = &domain.SignatureDocument{                                  //nolint:gochecknoglobals // test fixture
		ID: "signaturedocuments/nda", Title: "NDA", Content: "# NDA", Version: 3,
	}
)

type harness struct {
	conv      *fakeConversation
	opened    agent.ConversationOptions
	openedID  string
	issues    []*domain.Issue
	notified  []*domain.Issue
	publisher *recordingPublisher
	orch      *chat.Orchestrator
}

type turnScript func(ctx context.Context, c *fakeConversation, onChunk agent.ChunkFunc) (*agent.Result, error)

func newHarness(t *testing.T, run turnScript, opts ...chat.Option) *harness {
	t.Helper()
	return newHarnessWithConfig(t, func(*config.ConversationConfig) {}, run, opts...)
}

func newHarnessWithConfig(t *testing.T, configure func(*config.ConversationConfig), run turnScript, opts ...chat.Option) *harness {
	t.Helper()

	h := &harness{publisher: &recordingPublisher{}}
	h.conv = &fakeConversation{known: map[string]bool{"sign-1": true}, runFunc: run}

	engine := &fakeEngine{conversationFunc: func(_ context.Context, agentID, id string, o agent.ConversationOptions) (agent.Conversation, error) {
		assert.Equal(t, "hr-assistant", agentID)
		h.openedID = id
		h.opened = o
		h.conv.id = id
		h.conv.params = o.Parameters
		return h.conv, nil
	}}

	stores := chat.Stores{
		Employees: &mockEmployeeRepo{getByIDFunc: func(_ context.Context, id string) (*domain.Employee, error) {
			if id == ada.ID {
				return ada, nil
			}
			return nil, domain.ErrNotFound
		}},
		Issues: &mockIssueRepo{createFunc: func(_ context.Context, i *domain.Issue) error {
			h.issues = append(h.issues, i)
			return nil
		}},
		SignatureDocuments: &mockSignatureDocumentRepo{getByIDFunc: func(_ context.Context, id string) (*domain.SignatureDocument, error) {
			if id == nda.ID {
				return nda, nil
			}
			return nil, domain.ErrNotFound
		}},
	}

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	base := []chat.Option{
		chat.WithClock(func() time.Time { return testNow }),
		chat.WithIDGenerator(func() string { return "0001" }),
		chat.WithPublisher(h.publisher, func(id string) string { return "chat:" + id }),
		chat.WithNotifier(&mockNotifier{issueRaisedFunc: func(_ context.Context, i *domain.Issue) error {
			h.notified = append(h.notified, i)
			return errors.New("slack unavailable")
		}}),
	}
	cfg := config.ConversationConfig{
		AgentID:    "hr-assistant",
		Expiration: 30 * 24 * time.Hour,
		TimeZone:   seoul,
	}
	configure(&cfg)
	h.orch = chat.NewOrchestrator(engine, stores, cfg, append(base, opts...)...)

	return h
}

func reply(answer string, followups ...string) *agent.Result {
	return &agent.Result{Reply: &agent.Reply{Answer: answer, Followups: followups}}
}

func TestDefaultConversationID(t *testing.T) {
	t.Parallel()

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	assert.Equal(t, "hr/employees/ada/2025-03-01", chat.DefaultConversationID("employees/ada", testNow, time.UTC))
	assert.Equal(t, "hr/employees/ada/2025-03-02", chat.DefaultConversationID("employees/ada", testNow, seoul))
}

func TestRunTurn_Answer(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(_ context.Context, c *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
		assert.Equal(t, "How many vacation days do I have?", c.prompt)
		return reply("You have **12** days.", "Book leave"), nil
	})

	resp, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{
		EmployeeID: "ada",
		Message:    "  How many vacation days do I have?  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "hr/employees/ada/2025-03-02", resp.ConversationID)
	assert.Equal(t, "You have **12** days.", resp.Answer)
	assert.Equal(t, []string{"Book leave"}, resp.Followups)
	assert.Empty(t, resp.DocumentsToSign)
	assert.Equal(t, testNow, resp.GeneratedAt)

	assert.Equal(t, map[string]string{"employeeId": "employees/ada"}, h.opened.Parameters)
	assert.Equal(t, 30*24*time.Hour, h.opened.Expiration)

	h.orch.Wait()
	events := h.publisher.events["chat:hr/employees/ada/2025-03-02"]
	require.Len(t, events, 1)
	ev := events[0].(chat.Event)
	assert.Equal(t, chat.EventTurnCompleted, ev.Type)
	assert.Equal(t, resp, ev.Response)
}

func TestRunTurn_ClientConversationID(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(context.Context, *fakeConversation, agent.ChunkFunc) (*agent.Result, error) {
		return reply("hi"), nil
	})

	resp, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{
		ConversationID: "custom-thread",
		EmployeeID:     "employees/ada",
		Message:        "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom-thread", h.openedID)
	assert.Equal(t, "custom-thread", resp.ConversationID)
}

func TestRunTurn_Rejections(t *testing.T) {
	t.Parallel()

	unreachable := func(context.Context, *fakeConversation, agent.ChunkFunc) (*agent.Result, error) {
		t.Error("engine must not run")
		return nil, nil
	}

	tests := []struct {
		name    string
		req     chat.TurnRequest
		wantErr error
	}{
		{"missing employee id", chat.TurnRequest{Message: "hi"}, domain.ErrInvalidInput},
		{"unknown employee", chat.TurnRequest{EmployeeID: "eve", Message: "hi"}, domain.ErrNotFound},
		{"unknown tool id", chat.TurnRequest{
			EmployeeID: "ada",
			Signatures: []chat.Signature{{ToolID: "bogus", Content: chat.SignedContent}},
		}, agent.ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, unreachable)
			_, err := h.orch.RunTurn(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			h.orch.Wait()
			assert.Empty(t, h.publisher.events)
		})
	}
}

func TestRunTurn_EngineFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(context.Context, *fakeConversation, agent.ChunkFunc) (*agent.Result, error) {
		return nil, agent.ErrTooManySteps
	})

	_, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "hi"})
	require.ErrorIs(t, err, agent.ErrTooManySteps)
	h.orch.Wait()
	assert.Empty(t, h.publisher.events)
}

func TestRunTurn_TurnTimeout(t *testing.T) {
	t.Parallel()

	h := newHarnessWithConfig(t, func(c *config.ConversationConfig) {
		c.TurnTimeout = 20 * time.Millisecond
	}, func(ctx context.Context, _ *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "hi"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	h.orch.Wait()
	assert.Empty(t, h.publisher.events)
}

func TestRunTurn_SignaturesBeforePrompt(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(_ context.Context, c *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
		assert.Equal(t, []chat.Signature{{ToolID: "sign-1", Content: chat.SignedContent}}, c.responses)
		assert.Empty(t, c.prompt, "blank message is not a prompt")
		return reply("Thanks for signing."), nil
	})

	resp, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{
		EmployeeID: "ada",
		Message:    "   ",
		Signatures: []chat.Signature{{ToolID: "sign-1", Content: chat.SignedContent}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Thanks for signing.", resp.Answer)
}

func TestRunTurn_RaiseIssue(t *testing.T) {
	t.Parallel()

	var result agent.Outcome
	h := newHarness(t, func(ctx context.Context, c *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
		var err error
		result, err = c.invoke(ctx, "ri-1", "RaiseIssue",
			`{"title":"Broken chair","description":"Chair in 3B","category":"Facilities","priority":"Low"}`)
		require.NoError(t, err)
		return reply("Raised."), nil
	})

	_, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "my chair broke"})
	require.NoError(t, err)

	assert.False(t, result.Deferred())
	assert.Equal(t, "Raised issue: hrissues/0001", result.Result())

	require.Len(t, h.issues, 1)
	issue := h.issues[0]
	assert.Equal(t, "employees/ada", issue.EmployeeID)
	assert.Equal(t, "Ada Lovelace", issue.EmployeeName)
	assert.Equal(t, domain.IssueStatusOpen, issue.Status)
	assert.Equal(t, domain.IssuePriorityLow, issue.Priority)
	assert.Equal(t, testNow, issue.SubmittedDate)

	// Notification failures do not fail the action.
	assert.Len(t, h.notified, 1)
}

func TestRunTurn_SignDocument(t *testing.T) {
	t.Parallel()

	t.Run("known document pauses", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(ctx context.Context, c *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
			out, err := c.invoke(ctx, "sign-2", "SignDocument", `{"document":"nda"}`)
			require.NoError(t, err)
			require.True(t, out.Deferred())
			return &agent.Result{Required: []agent.RequiredAction{
				{ToolID: "sign-2", Name: "SignDocument", Arguments: json.RawMessage(`{"document":"nda"}`)},
			}}, nil
		})

		resp, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "sign the NDA"})
		require.NoError(t, err)

		assert.Empty(t, resp.Answer)
		assert.Equal(t, []string{}, resp.Followups)
		assert.Equal(t, []chat.DocumentToSign{{
			ToolID: "sign-2", DocumentID: "signaturedocuments/nda", Title: "NDA", Content: "# NDA", Version: 3,
		}}, resp.DocumentsToSign)
	})

	t.Run("unknown document is reported to the model", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(ctx context.Context, c *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
			out, err := c.invoke(ctx, "sign-2", "SignDocument", `{"Document":"signaturedocuments/missing"}`)
			require.NoError(t, err)
			assert.False(t, out.Deferred())
			assert.Equal(t, "Document signaturedocuments/missing was not found", out.Result())
			return reply("I could not find that document."), nil
		})

		resp, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "sign it"})
		require.NoError(t, err)
		assert.Empty(t, resp.DocumentsToSign)
	})

	t.Run("outstanding request from an earlier turn", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(context.Context, *fakeConversation, agent.ChunkFunc) (*agent.Result, error) {
			return &agent.Result{Required: []agent.RequiredAction{
				{ToolID: "sign-1", Name: "SignDocument", Arguments: json.RawMessage(`{"Document":"signaturedocuments/nda"}`)},
				{ToolID: "other", Name: "Approve", Arguments: json.RawMessage(`{}`)},
			}}, nil
		})

		resp, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada"})
		require.NoError(t, err)
		require.Len(t, resp.DocumentsToSign, 1)
		assert.Equal(t, "sign-1", resp.DocumentsToSign[0].ToolID)
		assert.Equal(t, 3, resp.DocumentsToSign[0].Version)
	})

	t.Run("outstanding request for a removed document is resolved", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(_ context.Context, c *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
			assert.Equal(t, []chat.Signature{{ToolID: "sign-3", Content: "Document retired-policy was not found"}}, c.responses)
			return reply("That document is no longer available."), nil
		})
		h.conv.known["sign-3"] = true
		h.conv.required = []agent.RequiredAction{
			{ToolID: "sign-1", Name: "SignDocument", Arguments: json.RawMessage(`{"document":"nda"}`)},
			{ToolID: "sign-3", Name: "SignDocument", Arguments: json.RawMessage(`{"document":"retired-policy"}`)},
		}

		resp, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada"})
		require.NoError(t, err)
		assert.Equal(t, "That document is no longer available.", resp.Answer)
	})

	t.Run("request answered by the client is left alone", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(_ context.Context, c *fakeConversation, _ agent.ChunkFunc) (*agent.Result, error) {
			assert.Equal(t, []chat.Signature{{ToolID: "sign-1", Content: chat.DeclinedContent}}, c.responses)
			return reply("Noted."), nil
		})
		h.conv.required = []agent.RequiredAction{
			{ToolID: "sign-1", Name: "SignDocument", Arguments: json.RawMessage(`{"document":"retired-policy"}`)},
		}

		_, err := h.orch.RunTurn(context.Background(), chat.TurnRequest{
			EmployeeID: "ada",
			Signatures: []chat.Signature{{ToolID: "sign-1", Content: chat.DeclinedContent}},
		})
		require.NoError(t, err)
	})
}

func TestStreamTurn(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(ctx context.Context, _ *fakeConversation, onChunk agent.ChunkFunc) (*agent.Result, error) {
		require.NotNil(t, onChunk)
		for _, c := range []string{"You have ", "12 days."} {
			if err := onChunk(ctx, c); err != nil {
				return nil, err
			}
		}
		return reply("You have 12 days."), nil
	})

	var chunks []string
	resp, err := h.orch.StreamTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "vacation?"},
		func(_ context.Context, text string) error {
			chunks = append(chunks, text)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"You have ", "12 days."}, chunks)
	assert.Equal(t, "You have 12 days.", resp.Answer)

	h.orch.Wait()
	events := h.publisher.events["chat:"+resp.ConversationID]
	require.Len(t, events, 3)
	assert.Equal(t, chat.EventTurnChunk, events[0].(chat.Event).Type)
	assert.Equal(t, "12 days.", events[1].(chat.Event).Text)
	assert.Equal(t, chat.EventTurnCompleted, events[2].(chat.Event).Type)
}

func TestStreamTurn_PublishFailureIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(ctx context.Context, _ *fakeConversation, onChunk agent.ChunkFunc) (*agent.Result, error) {
		if err := onChunk(ctx, "Hi"); err != nil {
			return nil, err
		}
		return reply("Hi"), nil
	})
	h.publisher.err = errors.New("redis down")

	resp, err := h.orch.StreamTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "hello"},
		func(context.Context, string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "Hi", resp.Answer)
	h.orch.Wait()
}

func TestStreamTurn_SlowPublisherDoesNotDelayClient(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	slow := &blockingPublisher{release: release}

	h := newHarness(t, func(ctx context.Context, _ *fakeConversation, onChunk agent.ChunkFunc) (*agent.Result, error) {
		for _, c := range []string{"You have ", "12 days."} {
			if err := onChunk(ctx, c); err != nil {
				return nil, err
			}
		}
		return reply("You have 12 days."), nil
	}, chat.WithPublisher(slow, func(id string) string { return "chat:" + id }))

	var chunks []string
	done := make(chan error, 1)
	go func() {
		_, err := h.orch.StreamTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "vacation?"},
			func(_ context.Context, text string) error {
				chunks = append(chunks, text)
				return nil
			})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("turn waited for the publisher")
	}
	assert.Equal(t, []string{"You have ", "12 days."}, chunks)

	close(release)
	h.orch.Wait()
	assert.Equal(t, []string{chat.EventTurnChunk, chat.EventTurnChunk, chat.EventTurnCompleted}, slow.types())
}

func TestStreamTurn_FailedChunkIsNotPublished(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(ctx context.Context, _ *fakeConversation, onChunk agent.ChunkFunc) (*agent.Result, error) {
		return nil, onChunk(ctx, "Hi")
	})

	_, err := h.orch.StreamTurn(context.Background(), chat.TurnRequest{EmployeeID: "ada", Message: "hello"},
		func(context.Context, string) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)

	h.orch.Wait()
	assert.Empty(t, h.publisher.events)
}
