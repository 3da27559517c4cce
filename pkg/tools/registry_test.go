package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Text string `json:"text" jsonschema:"required,description=Text to echo back"`
}

func echoTool(t *testing.T) *ToolDefinition {
	t.Helper()
	def, err := NewTool("echo", "Echo back the provided text", echoArgs{},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var in echoArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			return map[string]any{"echo": in.Text}, nil
		})
	require.NoError(t, err)
	return def
}

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := NewInMemoryRegistry()
	require.NoError(t, reg.Register(*echoTool(t)))

	assert.True(t, reg.Has("echo"))
	assert.Equal(t, 1, reg.Count())

	def, err := reg.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", def.Name)

	_, err = reg.Get("missing")
	assert.Error(t, err)
}

func TestRegistryRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	reg := NewInMemoryRegistry()
	assert.Error(t, reg.Register(ToolDefinition{Name: "", Fn: func(context.Context, json.RawMessage) (any, error) { return nil, nil }}))
	assert.Error(t, reg.Register(ToolDefinition{Name: "nofn"}))
}

func TestRegistryListSorted(t *testing.T) {
	t.Parallel()

	reg := NewInMemoryRegistry()
	noop := func(context.Context, json.RawMessage) (any, error) { return nil, nil }
	require.NoError(t, reg.Register(ToolDefinition{Name: "zeta", Fn: noop}))
	require.NoError(t, reg.Register(ToolDefinition{Name: "alpha", Fn: noop}))

	defs := reg.List()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "zeta", defs[1].Name)
}

func TestRegistryUnregister(t *testing.T) {
	t.Parallel()

	reg := NewInMemoryRegistry()
	require.NoError(t, reg.Register(*echoTool(t)))
	require.NoError(t, reg.Unregister("echo"))
	assert.False(t, reg.Has("echo"))
	assert.Error(t, reg.Unregister("echo"))
}

func TestValidateArguments(t *testing.T) {
	t.Parallel()

	def := echoTool(t)

	assert.NoError(t, def.ValidateArguments(json.RawMessage(`{"text":"hi"}`)))

	err := def.ValidateArguments(json.RawMessage(`{"text":42}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments for echo")

	err = def.ValidateArguments(json.RawMessage(`{}`))
	require.Error(t, err)
}
