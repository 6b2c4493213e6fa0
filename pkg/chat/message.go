package chat

import "time"

// Message roles. A conversation history is an ordered sequence of these; a
// tool_request for name N is always followed by a tool_response for the same
// name before any further user-facing text for that turn.
const (
	RoleUser         = "user"
	RoleAssistant    = "assistant"
	RoleToolRequest  = "tool_request"
	RoleToolResponse = "tool_response"
)

// Message represents a single conversation turn.
//
// The role decides which fields are meaningful: user/assistant carry Content,
// tool_request carries Name+Args, tool_response carries Name+Payload.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content,omitempty"`
	Name      string         `json:"name,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitzero"`
}

// NewUserMessage creates a user turn.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage creates an assistant turn.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// NewToolRequest records a provider-issued function call.
func NewToolRequest(name string, args map[string]any) Message {
	return Message{Role: RoleToolRequest, Name: name, Args: args, Timestamp: time.Now()}
}

// NewToolResponse records the result fed back to the provider.
func NewToolResponse(name string, payload map[string]any) Message {
	return Message{Role: RoleToolResponse, Name: name, Payload: payload, Timestamp: time.Now()}
}

// IsTool reports whether the message is part of a tool-call exchange.
func (m Message) IsTool() bool {
	return m.Role == RoleToolRequest || m.Role == RoleToolResponse
}

// CloneHistory returns an independent copy of a history slice. Message maps
// are shared; callers treat Args/Payload as immutable once appended.
func CloneHistory(history []Message) []Message {
	out := make([]Message, len(history))
	copy(out, history)
	return out
}
