// Package agent runs conversational agents that answer from a chat model,
// call read-only query tools and named actions, and pause when an action
// needs a result from outside the exchange.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownAgent is returned when a requested agent id is not registered.
	ErrUnknownAgent = errors.New("agent: unknown agent") //nolint:gochecknoglobals // sentinel error
	// ErrUnknownAction is returned for an action name that is not declared or
	// an action response whose tool id is not outstanding.
	ErrUnknownAction = errors.New("agent: unknown action") //nolint:gochecknoglobals // sentinel error
	// ErrMalformedReply is returned when the model's final output is not a structured reply.
	ErrMalformedReply = errors.New("agent: malformed reply") //nolint:gochecknoglobals // sentinel error
	// ErrTooManySteps is returned when an exchange exceeds the model step limit.
	ErrTooManySteps = errors.New("agent: too many steps") //nolint:gochecknoglobals // sentinel error
	// ErrMissingParameter is returned when a required conversation parameter is absent.
	ErrMissingParameter = errors.New("agent: missing parameter") //nolint:gochecknoglobals // sentinel error
	// ErrParameterMismatch is returned when an existing conversation is opened
	// with parameter values different from the ones it was created with.
	ErrParameterMismatch = errors.New("agent: parameter mismatch") //nolint:gochecknoglobals // sentinel error
	// ErrInvalidArguments marks tool arguments the model got wrong. The error
	// text is returned to the model as the tool result instead of failing the exchange.
	ErrInvalidArguments = errors.New("agent: invalid arguments") //nolint:gochecknoglobals // sentinel error
)

// Engine opens conversations with a registered agent.
type Engine interface {
	// Conversation opens the stored conversation or creates it when absent.
	Conversation(ctx context.Context, agentID, conversationID string, opts ConversationOptions) (Conversation, error)
}

type ConversationOptions struct {
	Parameters map[string]string
	// Expiration is measured from the last successful save.
	Expiration time.Duration
}

// Conversation is one exchange against a stored conversation. It is not safe
// for concurrent use.
type Conversation interface {
	ID() string
	// AddActionResponse resolves an outstanding action with content. It must be
	// called before SetUserPrompt within the same exchange.
	AddActionResponse(toolID, content string) error
	SetUserPrompt(prompt string)
	// Handle registers the handler for a declared action for this exchange.
	Handle(name string, handler ActionHandler) error
	Run(ctx context.Context) (*Result, error)
	// Stream is Run with the reply's answer text delivered through onChunk as it arrives.
	Stream(ctx context.Context, onChunk ChunkFunc) (*Result, error)
	// RequiredActions lists the actions still awaiting an outside result.
	RequiredActions() []RequiredAction
}

// ChunkFunc receives decoded answer text. Returning an error aborts the exchange.
type ChunkFunc func(ctx context.Context, text string) error

// Reply is the structured final answer of an exchange.
type Reply struct {
	Answer    string   `json:"answer"`
	Followups []string `json:"followups"`
}

// RequiredAction is an action the model selected that has not been resolved.
type RequiredAction struct {
	ToolID    string
	Name      string
	Arguments json.RawMessage
}

// Bind decodes the action arguments into v.
func (a RequiredAction) Bind(v any) error {
	return bindArguments(a.Name, a.Arguments, v)
}

// Result is the outcome of an exchange. Reply is nil when the exchange paused
// on required actions.
type Result struct {
	Reply    *Reply
	Required []RequiredAction
}

// Paused reports whether the exchange stopped on required actions.
func (r *Result) Paused() bool {
	return r.Reply == nil
}

// ActionCall is one invocation of an action by the model.
type ActionCall struct {
	ToolID    string
	Name      string
	Arguments json.RawMessage
	// Parameters are the conversation's bound parameters.
	Parameters map[string]string
}

// Bind decodes the call arguments into v.
func (c ActionCall) Bind(v any) error {
	return bindArguments(c.Name, c.Arguments, v)
}

// ActionHandler executes an action. Errors wrapping ErrInvalidArguments are
// reported to the model; any other error fails the exchange.
type ActionHandler func(ctx context.Context, call ActionCall) (Outcome, error)

// Outcome is either an immediate result or a deferral.
type Outcome struct {
	result   string
	deferred bool
}

// Complete returns an outcome whose result is handed straight back to the model.
func Complete(result string) Outcome {
	return Outcome{result: result}
}

// Defer returns an outcome that leaves the action pending until a response
// is added in a later exchange.
func Defer() Outcome {
	return Outcome{deferred: true}
}

func (o Outcome) Deferred() bool { return o.deferred }
func (o Outcome) Result() string { return o.result }

func bindArguments(name string, args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%s: %w: %w", name, ErrInvalidArguments, err)
	}
	return nil
}
