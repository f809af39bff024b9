package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/signature"
)

// FallbackAnswer is shown when a resumed turn finishes without an answer.
const FallbackAnswer = "Document processing completed."

var (
	// ErrStreamIncomplete is returned when a stream ends without its final event.
	ErrStreamIncomplete = errors.New("client: stream ended without final event") //nolint:gochecknoglobals // sentinel error
	// ErrTurnFailed is returned when the server reports an error event.
	ErrTurnFailed = errors.New("client: turn failed") //nolint:gochecknoglobals // sentinel error
)

// SignaturePrompter asks the employee to sign doc.
type SignaturePrompter interface {
	PromptSignature(ctx context.Context, doc chat.DocumentToSign) (signature.Outcome, error)
}

// Controller holds the employee's side of one conversation.
type Controller struct {
	client     *Client
	employeeID string
	prompter   SignaturePrompter
	onChunk    func(text string)

	conversationID string
	text           string
}

type ControllerOption func(*Controller)

// WithChunkHandler receives the accumulated answer text after every chunk.
func WithChunkHandler(fn func(text string)) ControllerOption {
	return func(c *Controller) { c.onChunk = fn }
}

// WithConversationID continues an existing conversation.
func WithConversationID(id string) ControllerOption {
	return func(c *Controller) { c.conversationID = id }
}

func NewController(client *Client, employeeID string, prompter SignaturePrompter, opts ...ControllerOption) *Controller {
	c := &Controller{client: client, employeeID: employeeID, prompter: prompter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConversationID returns the id assigned by the server, once known.
func (c *Controller) ConversationID() string { return c.conversationID }

// Text returns the answer text of the current turn as rendered so far.
func (c *Controller) Text() string { return c.text }

// Send streams a turn for message and settles every signature request it
// produces before returning the final response.
func (c *Controller) Send(ctx context.Context, message string) (*chat.ChatResponse, error) {
	resp, err := c.stream(ctx, ChatRequest{
		ConversationID: c.conversationID,
		Message:        message,
		EmployeeID:     c.employeeID,
	})
	if err != nil {
		return nil, fmt.Errorf("client.Controller.Send: %w", err)
	}

	resumed := false
	for len(resp.DocumentsToSign) > 0 {
		signatures, err := c.collectSignatures(ctx, resp.DocumentsToSign)
		if err != nil {
			return nil, fmt.Errorf("client.Controller.Send: %w", err)
		}

		resp, err = c.stream(ctx, ChatRequest{
			ConversationID: c.conversationID,
			EmployeeID:     c.employeeID,
			Signatures:     signatures,
		})
		if err != nil {
			return nil, fmt.Errorf("client.Controller.Send: resume: %w", err)
		}
		resumed = true
	}

	if resumed && resp.Answer == "" {
		resp.Answer = FallbackAnswer
		c.text = FallbackAnswer
	}
	return resp, nil
}

func (c *Controller) collectSignatures(ctx context.Context, docs []chat.DocumentToSign) ([]chat.Signature, error) {
	signatures := make([]chat.Signature, 0, len(docs))
	for _, doc := range docs {
		outcome, err := c.prompter.PromptSignature(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", doc.DocumentID, err)
		}

		content := chat.DeclinedContent
		if outcome.Confirmed {
			signCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
			_, err := c.client.SignDocument(signCtx, SignRequest{
				ConversationID: c.conversationID,
				EmployeeID:     c.employeeID,
				ToolID:         doc.ToolID,
				DocumentID:     doc.DocumentID,
				Confirmed:      true,
				SignatureBlob:  outcome.DataURL,
			})
			cancel()
			if err != nil {
				return nil, err //nolint:wrapcheck // already prefixed by the client
			}
			content = chat.SignedContent
		}
		signatures = append(signatures, chat.Signature{ToolID: doc.ToolID, Content: content})
	}
	return signatures, nil
}

// stream runs one streamed turn. Chunks are rendered as they arrive and the
// final event replaces them.
func (c *Controller) stream(ctx context.Context, req ChatRequest) (*chat.ChatResponse, error) {
	c.text = ""
	var final *chat.ChatResponse

	err := c.client.StreamChat(ctx, req, func(ev Event) error {
		switch ev.Type {
		case EventMessage:
			c.text += ev.Data
			if c.onChunk != nil {
				c.onChunk(c.text)
			}
		case EventFinal:
			var resp chat.ChatResponse
			if err := json.Unmarshal([]byte(ev.Data), &resp); err != nil {
				return fmt.Errorf("decode final event: %w", err)
			}
			final = &resp
			return errStop
		case EventError:
			var msg struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal([]byte(ev.Data), &msg)
			return fmt.Errorf("%w: %s", ErrTurnFailed, msg.Message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, ErrStreamIncomplete
	}

	c.conversationID = final.ConversationID
	c.text = final.Answer
	return final, nil
}
