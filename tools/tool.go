package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (output map[string]any, err error)
}

type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// Handler serves every tool name of one resource, switching on call.Name.
// It returns the text the model reads, or a classified *Error.
type Handler interface {
	Handle(ctx context.Context, call Call) (string, error)
	Tools() []Tool
}

// Def declares one tool routed to a Handler.
type Def struct {
	Name        string
	Title       string
	Description string
	Input       *jsonschema.Schema
}

type routedTool struct {
	def     Def
	handler Handler
}

// Route binds defs to h.
func Route(h Handler, defs ...Def) []Tool {
	out := make([]Tool, 0, len(defs))
	for _, d := range defs {
		if d.Input == nil {
			d.Input = object(nil)
		}
		out = append(out, &routedTool{def: d, handler: h})
	}
	return out
}

func (t *routedTool) Name() string                    { return t.def.Name }
func (t *routedTool) Title() string                   { return t.def.Title }
func (t *routedTool) Description() string             { return t.def.Description }
func (t *routedTool) InputSchema() *jsonschema.Schema { return t.def.Input }

func (t *routedTool) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"result": {Type: "string"},
		},
		Required: []string{"result"},
	}
}

func (t *routedTool) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	if input == nil {
		input = map[string]any{}
	}
	msg, err := t.handler.Handle(ctx, Call{Name: t.def.Name, Input: input})
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": msg}, nil
}
