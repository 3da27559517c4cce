package openai

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/corbat-tech/coco/pkg/conversation"
	"github.com/corbat-tech/coco/pkg/engine"
	"github.com/corbat-tech/coco/pkg/tools"
)

const DefaultModel = go_openai.GPT4TurboPreview

// Engine adapts the OpenAI chat-completion API to the provider interface
// consumed by the turn loop.
type Engine struct {
	client    *go_openai.Client
	model     string
	maxTokens int
}

var _ engine.Engine = (*Engine)(nil)

type Option func(*Engine)

func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

func WithMaxTokens(n int) Option {
	return func(e *Engine) { e.maxTokens = n }
}

func WithClient(client *go_openai.Client) Option {
	return func(e *Engine) { e.client = client }
}

func New(apiKey string, opts ...Option) *Engine {
	e := &Engine{
		model: DefaultModel,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = go_openai.NewClient(apiKey)
	}
	return e
}

func (e *Engine) RunInference(
	ctx context.Context,
	conv conversation.Conversation,
	defs []tools.ToolDefinition,
) (*engine.Response, error) {
	req := go_openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: messagesFromConversation(conv),
	}
	if e.maxTokens > 0 {
		req.MaxTokens = e.maxTokens
	}

	if len(defs) > 0 {
		req.Tools = toolsFromDefinitions(defs)
		req.ToolChoice = "auto"
	}

	log.Debug().
		Int("num_messages", len(req.Messages)).
		Int("num_tools", len(req.Tools)).
		Str("model", e.model).
		Msg("openai: running inference")

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	msg := resp.Choices[0].Message
	out := &engine.Response{
		Content: msg.Content,
		Usage: engine.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, tools.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// messagesFromConversation flattens block-structured messages into the chat
// completion shape: assistant tool-use blocks become ToolCalls on the
// assistant message, tool-result blocks become one "tool" message each,
// immediately following, in block order.
func messagesFromConversation(conv conversation.Conversation) []go_openai.ChatCompletionMessage {
	var out []go_openai.ChatCompletionMessage
	for _, msg := range conv {
		switch msg.Role {
		case conversation.RoleSystem:
			out = append(out, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleSystem,
				Content: msg.Text(),
			})
		case conversation.RoleAssistant:
			m := go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			for _, tu := range msg.ToolUses() {
				m.ToolCalls = append(m.ToolCalls, go_openai.ToolCall{
					ID:   tu.ToolID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      tu.Name,
						Arguments: string(tu.Input),
					},
				})
			}
			out = append(out, m)
		case conversation.RoleUser:
			results := msg.ToolResults()
			if len(results) == 0 {
				out = append(out, go_openai.ChatCompletionMessage{
					Role:    go_openai.ChatMessageRoleUser,
					Content: msg.Text(),
				})
				continue
			}
			for _, tr := range results {
				out = append(out, go_openai.ChatCompletionMessage{
					Role:       go_openai.ChatMessageRoleTool,
					Content:    tr.Result,
					ToolCallID: tr.ToolID,
				})
			}
		}
	}
	return out
}

func toolsFromDefinitions(defs []tools.ToolDefinition) []go_openai.Tool {
	out := make([]go_openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: go_openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}
