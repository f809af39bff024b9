package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall is a tool invocation requested by the model within an assistant turn.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is one entry of a conversation transcript.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Date       time.Time  `json:"date"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type PendingActionStatus string

const (
	PendingActionPending   PendingActionStatus = "pending"
	PendingActionResolved  PendingActionStatus = "resolved"
	PendingActionAbandoned PendingActionStatus = "abandoned"
)

// PendingAction is an action the model selected that awaits an out-of-band
// result. It is identified by the tool call id and consumed exactly once.
type PendingAction struct {
	ToolID    string              `json:"toolId"`
	Name      string              `json:"name"`
	Arguments string              `json:"arguments"`
	Status    PendingActionStatus `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Conversation is the stored state of one chat thread. Turns are append-only.
// Version increases by one on every successful save.
type Conversation struct {
	ID         string            `json:"id"`
	AgentID    string            `json:"agentId"`
	Parameters map[string]string `json:"parameters"`
	Turns      []Turn            `json:"turns"`
	Pending    []PendingAction   `json:"pending"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	Version    int64             `json:"version"`
}

// Outstanding returns the pending actions that are still awaiting a result.
func (c *Conversation) Outstanding() []PendingAction {
	var out []PendingAction
	for _, p := range c.Pending {
		if p.Status == PendingActionPending {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy that can be mutated without affecting c.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Parameters = make(map[string]string, len(c.Parameters))
	for k, v := range c.Parameters {
		cp.Parameters[k] = v
	}
	cp.Turns = make([]Turn, len(c.Turns))
	for i, t := range c.Turns {
		t.ToolCalls = append([]ToolCall(nil), t.ToolCalls...)
		cp.Turns[i] = t
	}
	cp.Pending = append([]PendingAction(nil), c.Pending...)
	return &cp
}

type ConversationRepository interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	// Save inserts a new conversation (Version 0) or updates an existing one
	// whose stored version equals c.Version. On success c.Version is incremented.
	// A version mismatch returns ErrConflict.
	Save(ctx context.Context, c *Conversation) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
