package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// ToolFunc executes one tool call. Arguments arrive as the raw JSON object
// the model produced, already validated against the tool's parameter schema.
type ToolFunc func(ctx context.Context, args json.RawMessage) (any, error)

// ToolDefinition describes one capability the model may invoke.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	// RequiresConfirmation marks tools that must pass the confirmation gate
	// before execution.
	RequiresConfirmation bool     `json:"requiresConfirmation,omitempty"`
	Tags                 []string `json:"tags,omitempty"`

	Fn ToolFunc `json:"-"`
}

type ToolOption func(*ToolDefinition)

func WithRequiresConfirmation(v bool) ToolOption {
	return func(d *ToolDefinition) { d.RequiresConfirmation = v }
}

func WithTags(tags ...string) ToolOption {
	return func(d *ToolDefinition) { d.Tags = tags }
}

// NewTool builds a definition whose parameter schema is reflected from the
// input prototype struct.
func NewTool(name, description string, input any, fn ToolFunc, opts ...ToolOption) (*ToolDefinition, error) {
	if name == "" {
		return nil, errors.New("tool name cannot be empty")
	}
	if fn == nil {
		return nil, errors.New("tool function cannot be nil")
	}

	var schema *jsonschema.Schema
	if input != nil {
		reflector := &jsonschema.Reflector{
			DoNotReference: true,
			Anonymous:      true,
		}
		schema = reflector.Reflect(input)
		// the provider expects a bare object schema, not a named definition
		schema.Version = ""
	}

	def := &ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Fn:          fn,
	}
	for _, opt := range opts {
		opt(def)
	}
	return def, nil
}

// ValidateArguments checks a raw argument object against the tool's
// parameter schema. A nil schema accepts anything.
func (d *ToolDefinition) ValidateArguments(args json.RawMessage) error {
	if d.Parameters == nil {
		return nil
	}
	schemaJSON, err := json.Marshal(d.Parameters)
	if err != nil {
		return errors.Wrap(err, "marshal parameter schema")
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(args),
	)
	if err != nil {
		return errors.Wrap(err, "validate arguments")
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.Errorf("invalid arguments for %s: %s", d.Name, strings.Join(msgs, "; "))
	}
	return nil
}
