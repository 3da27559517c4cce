package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerAppendAndSnapshot(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.AppendMessages(NewUserMessage("hello"))
	m.AppendMessages(NewMessage(RoleAssistant, []MessageContent{&TextContent{Text: "hi"}}))

	conv := m.GetConversation()
	require.Len(t, conv, 2)
	assert.Equal(t, RoleUser, conv[0].Role)
	assert.Equal(t, "hello", conv[0].Text())
	assert.Equal(t, RoleAssistant, conv[1].Role)

	// snapshot is a copy: later appends do not grow it
	m.AppendMessages(NewUserMessage("more"))
	assert.Len(t, conv, 2)
	assert.Len(t, m.GetConversation(), 3)
}

func TestAssistantMessageBlockOrder(t *testing.T) {
	t.Parallel()

	msg := NewAssistantMessage("running two tools", []*ToolUseContent{
		{ToolID: "t1", Name: "shell", Input: json.RawMessage(`{"command":"ls"}`)},
		{ToolID: "t2", Name: "read_file", Input: json.RawMessage(`{"path":"a.txt"}`)},
	})

	require.Len(t, msg.Blocks, 3)
	assert.Equal(t, "running two tools", msg.Text())

	uses := msg.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "t1", uses[0].ToolID)
	assert.Equal(t, "t2", uses[1].ToolID)
}

func TestValidateToolPairing(t *testing.T) {
	t.Parallel()

	assistant := NewAssistantMessage("", []*ToolUseContent{
		{ToolID: "t1", Name: "shell", Input: json.RawMessage(`{}`)},
	})
	results := NewToolResultsMessage([]*ToolResultContent{
		{ToolID: "t1", Result: "ok"},
	})

	conv := Conversation{NewUserMessage("go"), assistant, results}
	assert.NoError(t, ValidateToolPairing(conv))
}

func TestValidateToolPairingMissingResult(t *testing.T) {
	t.Parallel()

	assistant := NewAssistantMessage("", []*ToolUseContent{
		{ToolID: "t1", Name: "shell", Input: json.RawMessage(`{}`)},
	})

	err := ValidateToolPairing(Conversation{assistant})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching tool result")
}

func TestValidateToolPairingOrphanResult(t *testing.T) {
	t.Parallel()

	results := NewToolResultsMessage([]*ToolResultContent{
		{ToolID: "ghost", Result: "ok"},
	})

	err := ValidateToolPairing(Conversation{results})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching tool use")
}

func TestValidateToolPairingDuplicateID(t *testing.T) {
	t.Parallel()

	assistant := NewAssistantMessage("", []*ToolUseContent{
		{ToolID: "t1", Name: "shell", Input: json.RawMessage(`{}`)},
		{ToolID: "t1", Name: "shell", Input: json.RawMessage(`{}`)},
	})

	err := ValidateToolPairing(Conversation{assistant})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool use id")
}
