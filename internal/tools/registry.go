// Package tools declares the MCP tool catalogue and dispatches tool calls to their handlers.
package tools

import (
	"encoding/json"
	"fmt"
)

// Field types understood by the argument schema.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Field describes one argument accepted by a tool.
type Field struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Schema is the declarative, ordered argument list of a tool.
type Schema struct {
	Fields []Field
}

// Required returns the names of required fields in declaration order.
func (s Schema) Required() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// MarshalJSON renders the schema as a JSON Schema object.
func (s Schema) MarshalJSON() ([]byte, error) {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		p := map[string]any{"type": f.Type}
		if f.Description != "" {
			p["description"] = f.Description
		}
		props[f.Name] = p
	}
	return json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   s.Required(),
	})
}

// Tool describes an MCP tool and its input schema.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Registry is the fixed tool catalogue. It is immutable after construction.
type Registry struct {
	tools  []Tool
	byName map[string]int
}

// NewRegistry builds a registry from tools, keeping their order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tools: tool name is required")
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, fmt.Errorf("tools: duplicate tool %q", t.Name)
		}
		r.byName[t.Name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// List returns the catalogue in declaration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}
