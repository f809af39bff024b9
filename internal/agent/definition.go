package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Definition describes an agent: its prompt, the parameters every
// conversation must bind, and the tools it may call.
type Definition struct {
	ID           string
	Name         string
	SystemPrompt string
	Parameters   []Parameter
	Queries      []Query
	Actions      []Action
}

type Parameter struct {
	Name        string
	Description string
}

// QueryFunc answers a read-only query. params are the conversation's bound
// parameters; args are the model-supplied arguments. The returned value is
// JSON encoded as the tool result.
type QueryFunc func(ctx context.Context, params map[string]string, args json.RawMessage) (any, error)

// Query is a read-only tool. Queries of one model step run concurrently.
type Query struct {
	Name        string
	Description string
	Schema      map[string]any
	Run         QueryFunc
}

// Action is a tool with side effects. Its handler is registered per exchange.
type Action struct {
	Name        string
	Description string
	Schema      map[string]any
}

func (d *Definition) query(name string) (*Query, bool) {
	for i := range d.Queries {
		if d.Queries[i].Name == name {
			return &d.Queries[i], true
		}
	}
	return nil, false
}

func (d *Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("agent definition: empty id")
	}
	seen := make(map[string]bool, len(d.Queries)+len(d.Actions))
	for _, q := range d.Queries {
		if q.Run == nil {
			return fmt.Errorf("agent definition %q: query %q has no func", d.ID, q.Name)
		}
		if seen[q.Name] {
			return fmt.Errorf("agent definition %q: duplicate tool %q", d.ID, q.Name)
		}
		seen[q.Name] = true
	}
	for _, a := range d.Actions {
		if seen[a.Name] {
			return fmt.Errorf("agent definition %q: duplicate tool %q", d.ID, a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}

// tools returns the tool declarations offered to the model, queries first.
func (d *Definition) tools() []llms.Tool {
	tools := make([]llms.Tool, 0, len(d.Queries)+len(d.Actions))
	for _, q := range d.Queries {
		tools = append(tools, functionTool(q.Name, q.Description, q.Schema))
	}
	for _, a := range d.Actions {
		tools = append(tools, functionTool(a.Name, a.Description, a.Schema))
	}
	return tools
}

func functionTool(name, description string, schema map[string]any) llms.Tool {
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
	}
}
