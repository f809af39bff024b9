// Package client talks to the hrdesk HTTP API and drives a chat
// conversation from the employee's side, including signature requests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/domain"
)

// APIError is a non-success response decoded from its problem details.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("client: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("client: %d %s", e.Status, e.Title)
}

// ChatRequest is the body of a chat turn.
type ChatRequest struct {
	ConversationID string           `json:"conversationId,omitempty"`
	Message        string           `json:"message,omitempty"`
	EmployeeID     string           `json:"employeeId"`
	Signatures     []chat.Signature `json:"signatures,omitempty"`
}

// SignRequest is the body of a sign-document call.
type SignRequest struct {
	ConversationID string `json:"conversationId"`
	EmployeeID     string `json:"employeeId"`
	ToolID         string `json:"toolId"`
	DocumentID     string `json:"documentId"`
	Confirmed      bool   `json:"confirmed"`
	SignatureBlob  string `json:"signatureBlob,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends token as a Bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:5258/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Streams last as long as the turn; callers bound them with ctx.
		http: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*chat.ChatResponse, error) {
	var resp chat.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Client.Chat: %w", err)
	}
	return &resp, nil
}

// StreamChat runs a streamed turn and hands every server-sent event to fn.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, fn func(Event) error) error {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat/stream", req)
	if err != nil {
		return fmt.Errorf("client.Client.StreamChat: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("client.Client.StreamChat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client.Client.StreamChat: %w", decodeAPIError(resp))
	}

	if err := ReadEvents(resp.Body, fn); err != nil {
		return fmt.Errorf("client.Client.StreamChat: %w", err)
	}
	return nil
}

func (c *Client) SignDocument(ctx context.Context, req SignRequest) (*chat.SignResult, error) {
	var resp chat.SignResult
	if err := c.do(ctx, http.MethodPost, "/sign-document", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Client.SignDocument: %w", err)
	}
	return &resp, nil
}

// History returns the employee's conversation of the day.
func (c *Client) History(ctx context.Context, employeeID string) (*chat.ChatHistory, error) {
	var resp chat.ChatHistory
	path := "/chat/today/" + escapeID(domain.EmployeeID(employeeID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Client.History: %w", err)
	}
	return &resp, nil
}

// Employees returns the employee picker entries.
func (c *Client) Employees(ctx context.Context) ([]domain.EmployeeSummary, error) {
	var resp []domain.EmployeeSummary
	if err := c.do(ctx, http.MethodGet, "/employees/dropdown", nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Client.Employees: %w", err)
	}
	return resp, nil
}

// escapeID escapes each segment of a qualified id, keeping the separators.
func escapeID(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by the caller
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, apiErr)
	apiErr.Status = resp.StatusCode
	return apiErr
}

// defaultTimeout bounds non-streaming calls made by the controller.
const defaultTimeout = 2 * time.Minute
