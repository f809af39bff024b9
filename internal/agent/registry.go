package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type actionEntry struct {
	action Action
	schema *gojsonschema.Schema // nil when the action declares no schema
}

// Registry maps declared action names to their handlers for one exchange.
// Arguments are validated against the action's JSON schema before the
// handler runs. A declared action without a handler defers.
type Registry struct {
	entries map[string]*actionEntry

	mu       sync.RWMutex
	handlers map[string]ActionHandler
}

// NewRegistry compiles the schemas of actions.
func NewRegistry(actions []Action) (*Registry, error) {
	entries := make(map[string]*actionEntry, len(actions))
	for _, a := range actions {
		entry := &actionEntry{action: a}
		if a.Schema != nil {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.Schema))
			if err != nil {
				return nil, fmt.Errorf("agent.NewRegistry(%q): compile schema: %w", a.Name, err)
			}
			entry.schema = schema
		}
		entries[a.Name] = entry
	}

	return &Registry{
		entries:  entries,
		handlers: make(map[string]ActionHandler),
	}, nil
}

// Fork returns a registry sharing r's compiled schemas with no handlers.
func (r *Registry) Fork() *Registry {
	return &Registry{
		entries:  r.entries,
		handlers: make(map[string]ActionHandler),
	}
}

// Handle registers handler for the declared action name.
func (r *Registry) Handle(name string, handler ActionHandler) error {
	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("agent.Registry.Handle(%q): %w", name, ErrUnknownAction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler

	return nil
}

// Declared reports whether name is a declared action.
func (r *Registry) Declared(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Dispatch validates the call and runs its handler.
func (r *Registry) Dispatch(ctx context.Context, call ActionCall) (Outcome, error) {
	entry, ok := r.entries[call.Name]
	if !ok {
		return Outcome{}, fmt.Errorf("agent.Registry.Dispatch(%q): %w", call.Name, ErrUnknownAction)
	}

	if entry.schema != nil {
		if err := validateArguments(entry.schema, call.Arguments); err != nil {
			return Complete(fmt.Sprintf("Invalid arguments for %s: %s", call.Name, err)), nil
		}
	}

	r.mu.RLock()
	handler, ok := r.handlers[call.Name]
	r.mu.RUnlock()
	if !ok {
		return Defer(), nil
	}

	outcome, err := handler(ctx, call)
	if errors.Is(err, ErrInvalidArguments) {
		return Complete(fmt.Sprintf("Invalid arguments for %s: %s", call.Name, err)), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("agent.Registry.Dispatch(%q): %w", call.Name, err)
	}

	return outcome, nil
}

// Available returns declared action names in sorted order.
func (r *Registry) Available() []string {
	names := slices.Collect(func(yield func(string) bool) {
		for name := range r.entries {
			if !yield(name) {
				return
			}
		}
	})
	sort.Strings(names)

	return names
}

func validateArguments(schema *gojsonschema.Schema, args []byte) error {
	if len(args) == 0 {
		args = []byte("{}")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return err //nolint:wrapcheck // reported to the model verbatim
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}

	return errors.New(strings.Join(msgs, "; "))
}
