package chatbot

// EventType discriminates streaming events.
type EventType string

const (
	EventText       EventType = "text"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult pairs a tool call ID with the data produced for it.
type ToolResult struct {
	ID     string         `json:"id"`
	Result map[string]any `json:"result"`
}

// Event is one streaming chunk delivered to the client. Exactly one of
// the payload fields is set, matching Type. Done and error frames are
// produced by the transport layer with extra fields of their own.
type Event struct {
	Type       EventType   `json:"type"`
	Content    string      `json:"content,omitempty"`
	ToolCall   *ToolCall   `json:"toolCall,omitempty"`
	ToolResult *ToolResult `json:"toolResult,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// EmitFunc receives streaming events in order. Returning an error stops
// the stream; the client is assumed gone.
type EmitFunc func(Event) error

// ToolExchange records one executed tool call for persistence.
type ToolExchange struct {
	Call   ToolCall
	Result map[string]any
}

// Result is the outcome of one completed chat turn.
type Result struct {
	// Response is the assistant's final text. For streaming turns it
	// is the concatenation of all emitted text chunks.
	Response string
	// ToolExchanges lists every tool call executed during the turn,
	// in execution order.
	ToolExchanges []ToolExchange
}
