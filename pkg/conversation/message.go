package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeToolUse    ContentType = "tool-use"
	ContentTypeToolResult ContentType = "tool-result"
)

// MessageContent is one block inside a message: plain text, a requested tool
// invocation, or the result of one.
type MessageContent interface {
	ContentType() ContentType
	String() string
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type TextContent struct {
	Text string `json:"text"`
}

func (c *TextContent) ContentType() ContentType {
	return ContentTypeText
}

func (c *TextContent) String() string {
	return c.Text
}

var _ MessageContent = (*TextContent)(nil)

type ToolUseContent struct {
	ToolID string          `json:"toolID"`
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input"`
}

func (c *ToolUseContent) ContentType() ContentType {
	return ContentTypeToolUse
}

func (c *ToolUseContent) String() string {
	return fmt.Sprintf("ToolUseContent{ToolID: %s, Name: %s, Input: %s}", c.ToolID, c.Name, c.Input)
}

var _ MessageContent = (*ToolUseContent)(nil)

type ToolResultContent struct {
	ToolID  string `json:"toolID"`
	Result  string `json:"result"`
	IsError bool   `json:"isError,omitempty"`
}

func (c *ToolResultContent) ContentType() ContentType {
	return ContentTypeToolResult
}

func (c *ToolResultContent) String() string {
	return fmt.Sprintf("ToolResultContent{ToolID: %s, Result: %s, IsError: %v}", c.ToolID, c.Result, c.IsError)
}

var _ MessageContent = (*ToolResultContent)(nil)

// Message is one entry of a conversation: a role plus an ordered sequence of
// content blocks. A single assistant message may carry text followed by
// several tool-use blocks; the paired user message carries the matching
// tool-result blocks.
type Message struct {
	ID     uuid.UUID        `json:"id"`
	Role   Role             `json:"role"`
	Blocks []MessageContent `json:"blocks"`
	Time   time.Time        `json:"time"`
}

type Conversation []*Message

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(m *Message) { m.Time = t }
}

func WithID(id uuid.UUID) MessageOption {
	return func(m *Message) { m.ID = id }
}

func NewMessage(role Role, blocks []MessageContent, opts ...MessageOption) *Message {
	m := &Message{
		ID:     uuid.New(),
		Role:   role,
		Blocks: blocks,
		Time:   time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func NewSystemMessage(text string, opts ...MessageOption) *Message {
	return NewMessage(RoleSystem, []MessageContent{&TextContent{Text: text}}, opts...)
}

func NewUserMessage(text string, opts ...MessageOption) *Message {
	return NewMessage(RoleUser, []MessageContent{&TextContent{Text: text}}, opts...)
}

// NewAssistantMessage builds one assistant message with optional leading text
// followed by the tool-use blocks, in request order.
func NewAssistantMessage(text string, toolUses []*ToolUseContent, opts ...MessageOption) *Message {
	var blocks []MessageContent
	if text != "" {
		blocks = append(blocks, &TextContent{Text: text})
	}
	for _, tu := range toolUses {
		blocks = append(blocks, tu)
	}
	return NewMessage(RoleAssistant, blocks, opts...)
}

// NewToolResultsMessage builds the user message carrying tool results, in the
// same order the matching tool-use blocks were emitted.
func NewToolResultsMessage(results []*ToolResultContent, opts ...MessageOption) *Message {
	blocks := make([]MessageContent, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, r)
	}
	return NewMessage(RoleUser, blocks, opts...)
}

// Text returns the concatenated text blocks of the message.
func (m *Message) Text() string {
	var parts []string
	for _, b := range m.Blocks {
		if t, ok := b.(*TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool-use blocks of the message, in order.
func (m *Message) ToolUses() []*ToolUseContent {
	var out []*ToolUseContent
	for _, b := range m.Blocks {
		if tu, ok := b.(*ToolUseContent); ok {
			out = append(out, tu)
		}
	}
	return out
}

// ToolResults returns the tool-result blocks of the message, in order.
func (m *Message) ToolResults() []*ToolResultContent {
	var out []*ToolResultContent
	for _, b := range m.Blocks {
		if tr, ok := b.(*ToolResultContent); ok {
			out = append(out, tr)
		}
	}
	return out
}
