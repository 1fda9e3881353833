package tools

import (
	"context"
	"encoding/json"
)

type Handler func(ctx context.Context, input json.RawMessage) (interface{}, error)

// Tool is a named callable with a JSON input schema. Results are serialized
// as-is.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"inputSchema"`
	Handler     Handler         `json:"-"`
}

// Registry holds tools in registration order.
type Registry struct {
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

func (r *Registry) List() []Tool {
	ts := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		ts = append(ts, r.tools[name])
	}
	return ts
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}
