// Package chat runs HR assistant chat turns: it binds the employee to the
// conversation, registers the action handlers for the exchange, collects the
// documents awaiting a signature and publishes turn events.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/assistant"
	"github.com/gosuda/hrdesk/internal/config"
	"github.com/gosuda/hrdesk/internal/domain"
)

// Turn event types published on a conversation's channel.
const (
	EventTurnChunk     = "turn.chunk"
	EventTurnCompleted = "turn.completed"
)

const (
	// eventBuffer bounds the turn events waiting for the publisher. Events
	// beyond it are dropped.
	eventBuffer    = 64
	publishTimeout = 2 * time.Second
)

// Stores are the repositories a turn reads and writes.
type Stores struct {
	Employees          domain.EmployeeRepository
	Issues             domain.IssueRepository
	SignatureDocuments domain.SignatureDocumentRepository
	Conversations      domain.ConversationRepository
}

// Publisher fans turn events out to observers. *redis.PubSub satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any) error
}

// IssueNotifier is told about issues raised through chat. *notify.SlackNotifier satisfies it.
type IssueNotifier interface {
	IssueRaised(ctx context.Context, issue *domain.Issue) error
}

// Signature is the outcome of a signature request returned by the client.
type Signature struct {
	ToolID  string `json:"toolId"`
	Content string `json:"content"`
}

type TurnRequest struct {
	// ConversationID defaults to the employee's conversation of the day.
	ConversationID string
	EmployeeID     string
	Message        string
	Signatures     []Signature
}

// DocumentToSign is a SignDocument action awaiting the employee.
type DocumentToSign struct {
	ToolID     string `json:"toolId"`
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Version    int    `json:"version"`
}

// ChatResponse is the result of a turn. Answer is empty while documents
// await a signature.
type ChatResponse struct {
	ConversationID  string           `json:"conversationId"`
	Answer          string           `json:"answer,omitempty"`
	Followups       []string         `json:"followups"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	DocumentsToSign []DocumentToSign `json:"documentsToSign"`
}

// Event is published on the conversation's channel.
type Event struct {
	Type           string        `json:"type"`
	ConversationID string        `json:"conversationId"`
	Text           string        `json:"text,omitempty"`
	Response       *ChatResponse `json:"response,omitempty"`
}

// ChannelFunc names the pub/sub channel of a conversation.
type ChannelFunc func(conversationID string) string

type Orchestrator struct {
	engine   agent.Engine
	stores   Stores
	cfg      config.ConversationConfig
	now      func() time.Time
	newID    func() string
	notifier IssueNotifier

	publisher Publisher
	channel   ChannelFunc
	inflight  sync.WaitGroup
}

type Option func(*Orchestrator)

// WithPublisher publishes turn events on channel(conversationID).
func WithPublisher(p Publisher, channel ChannelFunc) Option {
	return func(o *Orchestrator) {
		o.publisher = p
		o.channel = channel
	}
}

func WithNotifier(n IssueNotifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides the generator of issue keys.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func NewOrchestrator(engine agent.Engine, stores Stores, cfg config.ConversationConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine: engine,
		stores: stores,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.AgentID == "" {
		o.cfg.AgentID = assistant.AgentID
	}
	if o.cfg.TimeZone == nil {
		o.cfg.TimeZone = time.UTC
	}
	return o
}

// DefaultConversationID returns the employee's conversation id for the day of now in loc.
func DefaultConversationID(employeeID string, now time.Time, loc *time.Location) string {
	return "hr/" + employeeID + "/" + now.In(loc).Format("2006-01-02")
}

// RunTurn executes one chat turn.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*ChatResponse, error) {
	resp, err := o.turn(ctx, req, nil)
	if err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.RunTurn: %w", err)
	}
	return resp, nil
}

// StreamTurn executes one chat turn, delivering answer text through onChunk as it arrives.
func (o *Orchestrator) StreamTurn(ctx context.Context, req TurnRequest, onChunk agent.ChunkFunc) (*ChatResponse, error) {
	resp, err := o.turn(ctx, req, onChunk)
	if err != nil {
		return nil, fmt.Errorf("chat.Orchestrator.StreamTurn: %w", err)
	}
	return resp, nil
}

// Wait blocks until the events of finished turns have been handed to the
// publisher.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

func (o *Orchestrator) turn(ctx context.Context, req TurnRequest, onChunk agent.ChunkFunc) (*ChatResponse, error) {
	events := o.startRelay()
	defer events.close()

	if strings.TrimSpace(req.EmployeeID) == "" {
		return nil, fmt.Errorf("employee id required: %w", domain.ErrInvalidInput)
	}
	employeeID := domain.EmployeeID(req.EmployeeID)

	employee, err := o.stores.Employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = DefaultConversationID(employeeID, o.now(), o.cfg.TimeZone)
	}

	conv, err := o.engine.Conversation(ctx, o.cfg.AgentID, conversationID, agent.ConversationOptions{
		Parameters: map[string]string{assistant.ParamEmployeeID: employeeID},
		Expiration: o.cfg.Expiration,
	})
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}

	answered := make(map[string]bool, len(req.Signatures))
	for _, s := range req.Signatures {
		if err := conv.AddActionResponse(s.ToolID, s.Content); err != nil {
			return nil, fmt.Errorf("action response: %w", err)
		}
		answered[s.ToolID] = true
	}
	if err := o.resolveMissingDocuments(ctx, conv, answered); err != nil {
		return nil, err
	}
	if msg := strings.TrimSpace(req.Message); msg != "" {
		conv.SetUserPrompt(msg)
	}

	h := &handlers{orchestrator: o, employee: employee, pending: make(map[string]*domain.SignatureDocument)}
	if err := conv.Handle(assistant.ActionRaiseIssue, h.raiseIssue); err != nil {
		return nil, err //nolint:wrapcheck // declared by the assistant definition
	}
	if err := conv.Handle(assistant.ActionSignDocument, h.signDocument); err != nil {
		return nil, err //nolint:wrapcheck // declared by the assistant definition
	}

	if o.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TurnTimeout)
		defer cancel()
	}

	var res *agent.Result
	if onChunk != nil {
		res, err = conv.Stream(ctx, func(ctx context.Context, text string) error {
			if err := onChunk(ctx, text); err != nil {
				return err
			}
			events.send(Event{Type: EventTurnChunk, ConversationID: conv.ID(), Text: text})
			return nil
		})
	} else {
		res, err = conv.Run(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("exchange %s: %w", conv.ID(), err)
	}

	resp := &ChatResponse{
		ConversationID:  conv.ID(),
		Followups:       []string{},
		GeneratedAt:     o.now(),
		DocumentsToSign: o.documentsToSign(ctx, res.Required, h.pending),
	}
	if res.Reply != nil {
		resp.Answer = res.Reply.Answer
		if res.Reply.Followups != nil {
			resp.Followups = res.Reply.Followups
		}
	}

	log.Info().
		Str("conversation_id", resp.ConversationID).
		Str("employee_id", employeeID).
		Int("documents_to_sign", len(resp.DocumentsToSign)).
		Bool("paused", res.Paused()).
		Msg("chat turn completed")

	snapshot := *resp
	events.send(Event{Type: EventTurnCompleted, ConversationID: resp.ConversationID, Response: &snapshot})

	return resp, nil
}

// resolveMissingDocuments answers outstanding SignDocument requests whose
// document can no longer be loaded, so the model learns about it instead of
// the request staying open without the client ever seeing it.
func (o *Orchestrator) resolveMissingDocuments(ctx context.Context, conv agent.Conversation, answered map[string]bool) error {
	for _, r := range conv.RequiredActions() {
		if r.Name != assistant.ActionSignDocument || answered[r.ToolID] {
			continue
		}

		var args assistant.SignDocumentArgs
		if err := r.Bind(&args); err == nil && args.Document != "" {
			_, err = o.stores.SignatureDocuments.GetByID(ctx, domain.QualifiedID(domain.CollectionSignatureDocuments, args.Document))
			switch {
			case err == nil:
				continue
			case !errors.Is(err, domain.ErrNotFound):
				return fmt.Errorf("load document %s: %w", args.Document, err)
			}
		}

		log.Warn().Str("tool_id", r.ToolID).Str("document_id", args.Document).Msg("sign document request without document")
		if err := conv.AddActionResponse(r.ToolID, documentNotFound(args.Document)); err != nil {
			return fmt.Errorf("resolve %s: %w", r.ToolID, err)
		}
	}
	return nil
}

// documentsToSign resolves the outstanding SignDocument actions, preferring
// documents loaded during this exchange.
func (o *Orchestrator) documentsToSign(ctx context.Context, required []agent.RequiredAction, loaded map[string]*domain.SignatureDocument) []DocumentToSign {
	docs := make([]DocumentToSign, 0, len(required))
	for _, r := range required {
		if r.Name != assistant.ActionSignDocument {
			continue
		}

		doc, ok := loaded[r.ToolID]
		if !ok {
			var args assistant.SignDocumentArgs
			if err := r.Bind(&args); err != nil {
				log.Warn().Err(err).Str("tool_id", r.ToolID).Msg("undecodable sign document request")
				continue
			}
			d, err := o.stores.SignatureDocuments.GetByID(ctx, domain.QualifiedID(domain.CollectionSignatureDocuments, args.Document))
			if err != nil {
				log.Warn().Err(err).Str("tool_id", r.ToolID).Str("document_id", args.Document).Msg("sign document request without document")
				continue
			}
			doc = d
		}

		docs = append(docs, DocumentToSign{
			ToolID:     r.ToolID,
			DocumentID: doc.ID,
			Title:      doc.Title,
			Content:    doc.Content,
			Version:    doc.Version,
		})
	}
	return docs
}

// eventRelay publishes the events of one turn in order, off the request
// path, so a slow publisher never holds back the client.
type eventRelay struct {
	events chan Event
}

func (o *Orchestrator) startRelay() *eventRelay {
	if o.publisher == nil {
		return nil
	}

	r := &eventRelay{events: make(chan Event, eventBuffer)}
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		for ev := range r.events {
			o.publish(ev)
		}
	}()
	return r
}

func (r *eventRelay) send(ev Event) {
	if r == nil {
		return
	}
	select {
	case r.events <- ev:
	default:
		log.Warn().Str("conversation_id", ev.ConversationID).Str("type", ev.Type).Msg("turn event dropped")
	}
}

func (r *eventRelay) close() {
	if r != nil {
		close(r.events)
	}
}

func (o *Orchestrator) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := o.publisher.PublishJSON(ctx, o.channel(ev.ConversationID), ev); err != nil {
		log.Warn().Err(err).Str("conversation_id", ev.ConversationID).Str("type", ev.Type).Msg("publish turn event")
	}
}
