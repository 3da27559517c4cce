package turnloop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corbat-tech/coco/pkg/confirm"
	"github.com/corbat-tech/coco/pkg/conversation"
	"github.com/corbat-tech/coco/pkg/engine"
	"github.com/corbat-tech/coco/pkg/events"
	"github.com/corbat-tech/coco/pkg/queue"
	"github.com/corbat-tech/coco/pkg/safety"
	"github.com/corbat-tech/coco/pkg/session"
	"github.com/corbat-tech/coco/pkg/tools"
)

// scriptedEngine replays a fixed list of responses and records the
// conversation snapshot it saw on each call.
type scriptedEngine struct {
	responses []*engine.Response
	calls     int
	seen      []conversation.Conversation
}

func (e *scriptedEngine) RunInference(_ context.Context, conv conversation.Conversation, _ []tools.ToolDefinition) (*engine.Response, error) {
	e.seen = append(e.seen, conv)
	if e.calls >= len(e.responses) {
		return &engine.Response{Content: "done"}, nil
	}
	resp := e.responses[e.calls]
	e.calls++
	return resp, nil
}

// capturingSink records every published event for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *capturingSink) PublishEvent(e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *capturingSink) typesSeen() []events.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type())
	}
	return out
}

type echoArgs struct {
	Text string `json:"text"`
}

type shellArgs struct {
	Command string `json:"command"`
}

func newTestRegistry(t *testing.T, executed *[]string) tools.Registry {
	t.Helper()
	registry := tools.NewInMemoryRegistry()

	echo, err := tools.NewTool("echo", "repeat text", echoArgs{}, func(_ context.Context, args json.RawMessage) (any, error) {
		var a echoArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		if executed != nil {
			*executed = append(*executed, "echo:"+a.Text)
		}
		return a.Text, nil
	})
	require.NoError(t, err)
	require.NoError(t, registry.Register(*echo))

	shell, err := tools.NewTool("shell", "run a command", shellArgs{}, func(_ context.Context, args json.RawMessage) (any, error) {
		var a shellArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		if executed != nil {
			*executed = append(*executed, "shell:"+a.Command)
		}
		return "ok", nil
	}, tools.WithRequiresConfirmation(true))
	require.NoError(t, err)
	require.NoError(t, registry.Register(*shell))

	return registry
}

func choosePrompter(choice confirm.Choice) confirm.Prompter {
	return confirm.PrompterFunc(func(context.Context, confirm.Request) (confirm.Choice, error) {
		return choice, nil
	})
}

func echoCall(id, text string) tools.ToolCall {
	return tools.ToolCall{ID: id, Name: "echo", Arguments: json.RawMessage(fmt.Sprintf(`{"text":%q}`, text))}
}

func shellCall(id, command string) tools.ToolCall {
	return tools.ToolCall{ID: id, Name: "shell", Arguments: json.RawMessage(fmt.Sprintf(`{"command":%q}`, command))}
}

func TestRunTurnNaturalCompletion(t *testing.T) {
	eng := &scriptedEngine{responses: []*engine.Response{
		{Content: "hello there", Usage: engine.Usage{InputTokens: 10, OutputTokens: 5}},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, nil), nil)

	res, err := loop.RunTurn(context.Background(), sess, "hi")
	require.NoError(t, err)

	assert.Equal(t, "hello there", res.Content)
	assert.False(t, res.Aborted)
	assert.False(t, res.MaxIterationsReached)
	assert.Empty(t, res.ToolCalls)
	assert.Equal(t, 10, res.Usage.InputTokens)

	conv := sess.Manager.GetConversation()
	require.Len(t, conv, 2)
	assert.Equal(t, conversation.RoleUser, conv[0].Role)
	assert.Equal(t, "hi", conv[0].Text())
	assert.Equal(t, conversation.RoleAssistant, conv[1].Role)
	assert.Equal(t, "hello there", conv[1].Text())
}

func TestRunTurnExecutesApprovedTools(t *testing.T) {
	var executed []string
	eng := &scriptedEngine{responses: []*engine.Response{
		{Content: "let me check", ToolCalls: []tools.ToolCall{echoCall("tc-1", "a"), echoCall("tc-2", "b")}},
		{Content: "all done"},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, &executed), confirm.NewGate(choosePrompter(confirm.ChoiceYes), nil))

	res, err := loop.RunTurn(context.Background(), sess, "check both")
	require.NoError(t, err)

	assert.Equal(t, []string{"echo:a", "echo:b"}, executed)
	require.Len(t, res.ToolCalls, 2)
	assert.Equal(t, "tc-1", res.ToolCalls[0].Call.ID)
	assert.True(t, res.ToolCalls[0].Result.Success())
	assert.Equal(t, "let me check\nall done", res.Content)

	conv := sess.Manager.GetConversation()
	require.NoError(t, conversation.ValidateToolPairing(conv))
	// user, assistant(text+uses), tool results, final assistant
	require.Len(t, conv, 4)
	assert.Len(t, conv[1].ToolUses(), 2)
	assert.Len(t, conv[2].ToolResults(), 2)
}

func TestRunTurnDeclinedToolNotExecuted(t *testing.T) {
	var executed []string
	eng := &scriptedEngine{responses: []*engine.Response{
		{ToolCalls: []tools.ToolCall{shellCall("tc-1", "ls")}},
		{Content: "understood"},
	}}
	sess := session.New()
	sink := &capturingSink{}
	ctx := events.WithEventSinks(context.Background(), sink)
	loop := NewLoop(eng, newTestRegistry(t, &executed), confirm.NewGate(choosePrompter(confirm.ChoiceNo), nil))

	res, err := loop.RunTurn(ctx, sess, "list files")
	require.NoError(t, err)

	assert.Empty(t, executed, "declined call must never reach the tool")
	require.Len(t, res.ToolCalls, 1)
	assert.False(t, res.ToolCalls[0].Result.Success())
	assert.Equal(t, "declined by user", res.ToolCalls[0].Result.Error)
	assert.Contains(t, sink.typesSeen(), events.EventTypeToolSkipped)

	// the model still sees a paired failed result
	conv := sess.Manager.GetConversation()
	require.NoError(t, conversation.ValidateToolPairing(conv))
	results := conv[2].ToolResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Equal(t, "declined by user", results[0].Result)
}

func TestRunTurnAbortStopsRemainingCalls(t *testing.T) {
	var executed []string
	answers := []confirm.Choice{confirm.ChoiceYes, confirm.ChoiceYes, confirm.ChoiceAbort}
	i := 0
	prompter := confirm.PrompterFunc(func(context.Context, confirm.Request) (confirm.Choice, error) {
		c := answers[i]
		i++
		return c, nil
	})

	calls := make([]tools.ToolCall, 0, 5)
	for n := 1; n <= 5; n++ {
		calls = append(calls, shellCall(fmt.Sprintf("tc-%d", n), fmt.Sprintf("step %d", n)))
	}
	eng := &scriptedEngine{responses: []*engine.Response{
		{Content: "working through the steps", ToolCalls: calls},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, &executed), confirm.NewGate(prompter, nil))

	res, err := loop.RunTurn(context.Background(), sess, "do five things")
	require.NoError(t, err)

	assert.True(t, res.Aborted)
	assert.Equal(t, AbortReasonUserAbort, res.AbortReason)
	assert.Len(t, res.ToolCalls, 2, "only the calls approved before the abort")
	assert.Len(t, executed, 2)
	assert.NotEmpty(t, res.PartialContent)
	assert.Equal(t, 1, eng.calls, "no further provider call after abort")

	conv := sess.Manager.GetConversation()
	require.NoError(t, conversation.ValidateToolPairing(conv))
}

func TestRunTurnBlockedCommandNeverPrompted(t *testing.T) {
	var executed []string
	prompter := confirm.PrompterFunc(func(context.Context, confirm.Request) (confirm.Choice, error) {
		return confirm.ChoiceYes, fmt.Errorf("prompter must not be consulted for blocked commands")
	})
	eng := &scriptedEngine{responses: []*engine.Response{
		{ToolCalls: []tools.ToolCall{shellCall("tc-1", "rm -rf /")}},
		{Content: "that was refused"},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, &executed), confirm.NewGate(prompter, nil),
		WithPolicy(safety.NewPolicy()),
		WithRiskMode(true))

	res, err := loop.RunTurn(context.Background(), sess, "wipe the disk")
	require.NoError(t, err)

	assert.Empty(t, executed)
	require.Len(t, res.ToolCalls, 1)
	assert.False(t, res.ToolCalls[0].Result.Success())
	assert.Contains(t, res.ToolCalls[0].Result.Error, "blocked by safety policy")
}

func TestRunTurnRiskModeAutoApproves(t *testing.T) {
	var executed []string
	prompter := confirm.PrompterFunc(func(context.Context, confirm.Request) (confirm.Choice, error) {
		return confirm.ChoiceNo, fmt.Errorf("prompter must not be consulted in risk mode")
	})
	eng := &scriptedEngine{responses: []*engine.Response{
		{ToolCalls: []tools.ToolCall{shellCall("tc-1", "git status")}},
		{Content: "clean tree"},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, &executed), confirm.NewGate(prompter, nil),
		WithPolicy(safety.NewPolicy()),
		WithRiskMode(true))

	res, err := loop.RunTurn(context.Background(), sess, "check git")
	require.NoError(t, err)

	assert.Equal(t, []string{"shell:git status"}, executed)
	require.Len(t, res.ToolCalls, 1)
	assert.True(t, res.ToolCalls[0].Result.Success())
}

func TestRunTurnQueuedAbortEndsTurn(t *testing.T) {
	q := queue.NewMessageQueue(10)
	eng := &scriptedEngine{responses: []*engine.Response{
		{Content: "never reached"},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, nil), nil, WithQueue(q))

	q.Enqueue("stop")
	res, err := loop.RunTurn(context.Background(), sess, "start something")
	require.NoError(t, err)

	assert.True(t, res.Aborted)
	assert.Equal(t, AbortReasonUserInterrupt, res.AbortReason)
	assert.Equal(t, 0, eng.calls, "abort drains before the provider call")
}

func TestRunTurnQueuedFeedbackInjected(t *testing.T) {
	q := queue.NewMessageQueue(10)
	eng := &scriptedEngine{responses: []*engine.Response{
		{Content: "sure"},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, nil), nil, WithQueue(q))

	q.Enqueue("add emojis")
	q.Enqueue("add colors")
	_, err := loop.RunTurn(context.Background(), sess, "write a banner")
	require.NoError(t, err)

	require.Len(t, eng.seen, 1)
	conv := eng.seen[0]
	require.Len(t, conv, 2)
	assert.Contains(t, conv[1].Text(), "add emojis")
	assert.Contains(t, conv[1].Text(), "add colors")
	assert.Contains(t, conv[1].Text(), "Incorporate it before continuing")
	assert.True(t, q.IsEmpty())
}

func TestRunTurnMaxIterations(t *testing.T) {
	responses := make([]*engine.Response, 0, 4)
	for n := 0; n < 4; n++ {
		responses = append(responses, &engine.Response{ToolCalls: []tools.ToolCall{echoCall(fmt.Sprintf("tc-%d", n), "again")}})
	}
	eng := &scriptedEngine{responses: responses}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, nil), nil, WithMaxIterations(3))

	res, err := loop.RunTurn(context.Background(), sess, "loop forever")
	require.NoError(t, err)

	assert.True(t, res.MaxIterationsReached)
	assert.False(t, res.Aborted, "iteration bound is not an abort")
	assert.Equal(t, 3, eng.calls)
	assert.Len(t, res.ToolCalls, 3)
}

func TestRunTurnContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := &scriptedEngine{}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, nil), nil)

	res, err := loop.RunTurn(ctx, sess, "anything")
	require.NoError(t, err)

	assert.True(t, res.Aborted)
	assert.Equal(t, AbortReasonUserCancel, res.AbortReason)
	assert.Equal(t, 0, eng.calls)
}

func TestRunTurnEngineErrorKeepsPartialResult(t *testing.T) {
	eng := &scriptedEngine{responses: []*engine.Response{
		{Content: "step one", ToolCalls: []tools.ToolCall{echoCall("tc-1", "x")}},
	}}
	sess := session.New()
	loop := NewLoop(&failAfter{inner: eng, failOn: 2}, newTestRegistry(t, nil), nil)

	res, err := loop.RunTurn(context.Background(), sess, "go")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "step one", res.Content)
	assert.Len(t, res.ToolCalls, 1)
}

// failAfter delegates to inner until call number failOn, then errors.
type failAfter struct {
	inner  *scriptedEngine
	failOn int
	calls  int
}

func (f *failAfter) RunInference(ctx context.Context, conv conversation.Conversation, defs []tools.ToolDefinition) (*engine.Response, error) {
	f.calls++
	if f.calls >= f.failOn {
		return nil, fmt.Errorf("provider unavailable")
	}
	return f.inner.RunInference(ctx, conv, defs)
}

func TestRunTurnYesAllScopedToTurn(t *testing.T) {
	prompts := 0
	prompter := confirm.PrompterFunc(func(context.Context, confirm.Request) (confirm.Choice, error) {
		prompts++
		return confirm.ChoiceYesAll, nil
	})
	gate := confirm.NewGate(prompter, nil)

	eng := &scriptedEngine{responses: []*engine.Response{
		{ToolCalls: []tools.ToolCall{shellCall("tc-1", "a"), shellCall("tc-2", "b")}},
		{Content: "done"},
		{ToolCalls: []tools.ToolCall{shellCall("tc-3", "c")}},
		{Content: "done again"},
	}}
	sess := session.New()
	loop := NewLoop(eng, newTestRegistry(t, nil), gate)

	_, err := loop.RunTurn(context.Background(), sess, "first")
	require.NoError(t, err)
	assert.Equal(t, 1, prompts, "allow-all covers the rest of the turn")

	_, err = loop.RunTurn(context.Background(), sess, "second")
	require.NoError(t, err)
	assert.Equal(t, 2, prompts, "allow-all does not survive into the next turn")
}
