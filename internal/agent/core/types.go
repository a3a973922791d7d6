package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleSystem     Role = "system"
	RoleHuman      Role = "human"
	RoleAI         Role = "ai"
	RoleToolResult Role = "tool"
)

// ToolCall is a structured request, embedded in a model message, to invoke
// a named capability with JSON-encoded arguments.
type ToolCall struct {
	CallID    string `json:"call_id"`
	Name      string `json:"tool_name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in a conversation. AI messages may carry tool calls;
// tool-result messages reference the call they answer via CallID.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CallID    string     `json:"call_id,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`
	// Images holds data URLs attached to a human message (layout pass only).
	Images []string `json:"images,omitempty"`
}

func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }
func HumanMessage(content string) Message  { return Message{Role: RoleHuman, Content: content} }

func ToolResultMessage(callID, content string, isErr bool) Message {
	return Message{Role: RoleToolResult, Content: content, CallID: callID, IsError: isErr}
}

// ToolCallDelta is one incremental piece of a streamed tool call. Deltas for
// the same Index concatenate; the first non-empty CallID for an index wins.
type ToolCallDelta struct {
	Index     int
	CallID    string
	Name      string
	Arguments string
}

// Fragment is an incremental, possibly empty unit of streamed model output.
type Fragment struct {
	Text      string
	ToolCalls []ToolCallDelta
}

// ModelClient produces a stream of fragments for a message list. When tools
// is nil, fragments never carry tool-call deltas. The fragment channel is
// closed when the stream ends; a stream-level failure is reported on the
// error channel (at most one error) after the fragment channel closes.
type ModelClient interface {
	Stream(ctx context.Context, model string, messages []Message, tools []ToolSpec) (<-chan Fragment, <-chan error)
}

// fallbackCallID generates a placeholder id for tool calls the model
// emitted without one.
func fallbackCallID() string {
	return fmt.Sprintf("tool_call_%d", time.Now().UnixNano())
}

func newRunID() string { return uuid.NewString() }

// serializeResult renders a tool result as conversation text. Strings pass
// through; anything else becomes canonical JSON.
func serializeResult(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
