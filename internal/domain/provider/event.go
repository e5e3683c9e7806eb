package provider

// EventType 标准化流事件类型
type EventType string

const (
	EventThinkingStart EventType = "thinking_start"
	EventThinking      EventType = "thinking"
	EventThinkingEnd   EventType = "thinking_end"
	EventContent       EventType = "content"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// StreamEvent 与供应商无关的流式输出单元
// Text 用于 thinking/content，Message 用于 error
type StreamEvent struct {
	Type     EventType
	Text     string
	Message  string
	Metadata map[string]any
}

// IsTerminal done 和 error 之后不会再有事件
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

func ThinkingStart(metadata map[string]any) StreamEvent {
	return StreamEvent{Type: EventThinkingStart, Metadata: metadata}
}

func Thinking(text string) StreamEvent {
	return StreamEvent{Type: EventThinking, Text: text}
}

func ThinkingEnd() StreamEvent {
	return StreamEvent{Type: EventThinkingEnd}
}

func Content(text string) StreamEvent {
	return StreamEvent{Type: EventContent, Text: text}
}

func Done() StreamEvent {
	return StreamEvent{Type: EventDone}
}

func Error(message string, metadata map[string]any) StreamEvent {
	return StreamEvent{Type: EventError, Message: message, Metadata: metadata}
}
