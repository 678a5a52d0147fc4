// Package tools defines the named-tool contract shared by every backend the
// agent can call — Azure Function endpoints, Logic App workflow triggers, and
// plain Go functions — plus the registry that dispatches on tool name.
package tools

import (
	"context"
)

// Tool is the interface all agent-callable tools must satisfy. Params are
// passed through verbatim; the input schema is advertisement for the LLM
// tool-calling interface and is never enforced here.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Invoke(ctx context.Context, params map[string]any) (map[string]any, error)
}

// InvokeFunc is the shape of a local Go function exposed as a tool.
type InvokeFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// PayloadSchema is the schema advertised for HTTP-backed tools: a single
// free-form JSON payload forwarded to the endpoint.
func PayloadSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"payload": map[string]any{
				"type":        "object",
				"description": description,
			},
		},
		"required": []string{"payload"},
	}
}

// HTTPTool adapts an HTTP-backed invoker (Functions or Logic Apps client)
// to the Tool interface. Params are forwarded verbatim as the JSON payload
// and the invoker's result is returned unchanged.
type HTTPTool struct {
	name        string
	description string
	schema      map[string]any
	invoke      InvokeFunc
}

// NewHTTPTool wraps invoke as a named tool. The schema defaults to
// PayloadSchema when nil.
func NewHTTPTool(name, description string, schema map[string]any, invoke InvokeFunc) *HTTPTool {
	if schema == nil {
		schema = PayloadSchema("JSON payload to send to the endpoint")
	}
	return &HTTPTool{name: name, description: description, schema: schema, invoke: invoke}
}

func (t *HTTPTool) Name() string                { return t.name }
func (t *HTTPTool) Description() string         { return t.description }
func (t *HTTPTool) InputSchema() map[string]any { return t.schema }

func (t *HTTPTool) Invoke(ctx context.Context, params map[string]any) (map[string]any, error) {
	return t.invoke(ctx, params)
}

// FuncTool adapts a local Go function to the Tool interface.
type FuncTool struct {
	name        string
	description string
	schema      map[string]any
	fn          InvokeFunc
}

// NewFuncTool wraps fn as a named tool with the given advisory schema.
func NewFuncTool(name, description string, schema map[string]any, fn InvokeFunc) *FuncTool {
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &FuncTool{name: name, description: description, schema: schema, fn: fn}
}

func (t *FuncTool) Name() string                { return t.name }
func (t *FuncTool) Description() string         { return t.description }
func (t *FuncTool) InputSchema() map[string]any { return t.schema }

func (t *FuncTool) Invoke(ctx context.Context, params map[string]any) (map[string]any, error) {
	return t.fn(ctx, params)
}
