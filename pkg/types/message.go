package types

// RequestMessage is the user-submitted half of a request.
type RequestMessage struct {
	Prompt  string   `json:"prompt"`
	AgentID string   `json:"agentId"`
	Command string   `json:"command,omitempty"`
	Images  []string `json:"images,omitempty"`
}

// Followup is a suggested next user message offered after a response
// completes.
type Followup struct {
	Kind    string `json:"kind,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// ErrorDetails describes an agent or backend failure surfaced on a
// response. The turn still completes so the error can render inline;
// cancellation never carries error details.
type ErrorDetails struct {
	Message              string `json:"message"`
	ResponseIsIncomplete bool   `json:"responseIsIncomplete,omitempty"`
	ResponseIsFiltered   bool   `json:"responseIsFiltered,omitempty"`
}

// Turn roles in normalized message history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatTurn is one normalized history turn, suitable for re-submission to
// a model. Text turns set Content; tool interactions are represented as
// an assistant turn carrying ToolCall followed by a tool turn carrying
// ToolResult.
type ChatTurn struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	ToolCall   *ToolCallTurn   `json:"toolCall,omitempty"`
	ToolResult *ToolResultTurn `json:"toolResult,omitempty"`
}

// ToolCallTurn is the assistant side of a tool invocation.
type ToolCallTurn struct {
	CallID string         `json:"callId"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
}

// ToolResultTurn answers a ToolCallTurn.
type ToolResultTurn struct {
	CallID string         `json:"callId"`
	Name   string         `json:"name"`
	Result map[string]any `json:"result"`
}
