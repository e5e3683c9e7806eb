package chat

import (
	"encoding/json"

	"github.com/ndrwsmyth/oxychat/internal/domain/provider"
)

// 仅下发给客户端的事件类型
const EventSources = "sources"

// WireEvent 下发给客户端的流事件
type WireEvent struct {
	Type     string
	Content  *string
	Metadata map[string]any
	// Error 仅 error 事件
	Error string

	// 以下字段仅 sources 事件
	Sources        []Source
	TruncationInfo []TruncationInfo
	FailedMentions []FailedMention
}

// IsTerminal done 与 error 为终止事件
func (e WireEvent) IsTerminal() bool {
	return e.Type == string(provider.EventDone) || e.Type == string(provider.EventError)
}

// ErrorEvent 构造 error 事件
func ErrorEvent(message string) WireEvent {
	return WireEvent{Type: string(provider.EventError), Error: message}
}

// DoneEvent 构造 done 事件
func DoneEvent() WireEvent {
	return WireEvent{Type: string(provider.EventDone)}
}

// SourcesEvent 由上下文构建结果生成 sources 事件
func SourcesEvent(r *ContextResult) WireEvent {
	return WireEvent{
		Type:           EventSources,
		Sources:        nonNilSources(r.Sources),
		TruncationInfo: r.TruncationInfo,
		FailedMentions: r.FailedMentions,
	}
}

// FromStreamEvent 供应商事件一对一转换为下发事件
func FromStreamEvent(ev provider.StreamEvent) WireEvent {
	out := WireEvent{Type: string(ev.Type), Metadata: ev.Metadata}
	switch ev.Type {
	case provider.EventThinking, provider.EventContent:
		text := ev.Text
		out.Content = &text
	case provider.EventError:
		out.Error = ev.Message
	}
	return out
}

// MarshalJSON 按事件类型输出字段
func (e WireEvent) MarshalJSON() ([]byte, error) {
	data := map[string]any{"type": e.Type}
	switch e.Type {
	case EventSources:
		data["sources"] = nonNilSources(e.Sources)
		if len(e.TruncationInfo) > 0 {
			data["truncation_info"] = e.TruncationInfo
		}
		if len(e.FailedMentions) > 0 {
			data["failed_mentions"] = e.FailedMentions
		}
		return json.Marshal(data)
	case string(provider.EventError):
		data["error"] = e.Error
	}
	if e.Content != nil {
		data["content"] = *e.Content
	}
	if len(e.Metadata) > 0 {
		data["metadata"] = e.Metadata
	}
	return json.Marshal(data)
}
