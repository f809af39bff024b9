package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/domain"
)

type HistoryMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatHistory struct {
	ConversationID string           `json:"conversationId"`
	EmployeeID     string           `json:"employeeId"`
	Messages       []HistoryMessage `json:"messages"`
}

// History returns the visible messages of the employee's conversation of the day.
func (o *Orchestrator) History(ctx context.Context, employeeID string) (*ChatHistory, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, fmt.Errorf("chat.Orchestrator.History: employee id required: %w", domain.ErrInvalidInput)
	}
	employeeID = domain.EmployeeID(employeeID)
	id := DefaultConversationID(employeeID, o.now(), o.cfg.TimeZone)

	h := &ChatHistory{ConversationID: id, EmployeeID: employeeID, Messages: []HistoryMessage{}}

	conv, err := o.stores.Conversations.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.History: %w", err)
	}

	h.Messages = ProjectHistory(conv)
	return h, nil
}

// ProjectHistory maps stored turns to the messages shown to the employee.
// Tool, system and parameter turns are hidden and structured replies show
// only their answer.
func ProjectHistory(conv *domain.Conversation) []HistoryMessage {
	msgs := make([]HistoryMessage, 0, len(conv.Turns))
	for _, t := range conv.Turns {
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			continue
		}
		if t.Content == "" || strings.HasPrefix(t.Content, agent.ParametersMarker) {
			continue
		}

		text := t.Content
		if t.Role == domain.RoleAssistant && strings.HasPrefix(text, "{") {
			if answer, ok := agent.DecodeReply(text); ok {
				text = answer
			}
		}

		msgs = append(msgs, HistoryMessage{
			ID:        conv.ID + "#" + strconv.Itoa(len(msgs)),
			Text:      text,
			IsUser:    t.Role == domain.RoleUser,
			Timestamp: t.Date,
		})
	}
	return msgs
}
