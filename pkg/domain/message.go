package domain

import "github.com/google/uuid"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in the conversation transcript.
// Messages are immutable once appended to a State.
type Message struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`

	// ToolCalls holds pending tool invocations requested by an assistant message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`

	// ToolCallID links a tool result message back to the call that produced it.
	ToolCallID string `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
}

// ToolCall represents a request from the model to invoke a tool.
// Compatible with OpenAI/MCP tool call schemas.
type ToolCall struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`
	Name string         `json:"name" yaml:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// Tool describes an invocable tool exposed to the model.
type Tool struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// NewSystemMessage builds a system message with a fresh ID.
func NewSystemMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleSystem, Content: content}
}

// NewUserMessage builds a user message with a fresh ID.
func NewUserMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an assistant message with a fresh ID.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{ID: uuid.NewString(), Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage builds a tool result message linked to a call ID.
func NewToolMessage(content string, toolCallID string) Message {
	return Message{ID: uuid.NewString(), Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			out.ToolCalls[i] = tc.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the tool call.
func (tc ToolCall) Clone() ToolCall {
	out := tc
	if tc.Args != nil {
		out.Args = make(map[string]any, len(tc.Args))
		for k, v := range tc.Args {
			out.Args[k] = v
		}
	}
	return out
}

// HasToolCalls reports whether the message carries pending tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
