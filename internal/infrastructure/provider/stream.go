package provider

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	domain "github.com/ndrwsmyth/oxychat/internal/domain/provider"
)

const (
	// eventBufferSize 流事件缓冲，保证取消时终止事件仍可写入
	eventBufferSize = 32
	// maxSSELineSize 单行 SSE 数据上限
	maxSSELineSize = 1 << 20
	// maxErrorBodySize 错误响应体读取上限
	maxErrorBodySize = 4096
)

// eventWriter 负责保证每个流恰好一个终止事件
type eventWriter struct {
	ctx        context.Context
	out        chan domain.StreamEvent
	terminated bool
}

// emit 发送非终止事件，调用方已断开时返回 false
func (w *eventWriter) emit(ev domain.StreamEvent) bool {
	if w.terminated {
		return false
	}
	return w.send(ev)
}

func (w *eventWriter) send(ev domain.StreamEvent) bool {
	select {
	case w.out <- ev:
		return true
	default:
	}
	select {
	case w.out <- ev:
		return true
	case <-w.ctx.Done():
		return false
	}
}

func (w *eventWriter) terminate(ev domain.StreamEvent) {
	if w.terminated {
		return
	}
	w.terminated = true
	w.send(ev)
}

// runStream 在独立 goroutine 中执行 fn
// fn 返回 nil 时发送 done，返回错误或 panic 时发送带 metadata 的 error 事件
func runStream(ctx context.Context, metadata map[string]any, fn func(w *eventWriter) error) <-chan domain.StreamEvent {
	out := make(chan domain.StreamEvent, eventBufferSize)
	w := &eventWriter{ctx: ctx, out: out}

	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				w.terminate(domain.Error(fmt.Sprintf("provider panic: %v", r), metadata))
			}
		}()

		if err := fn(w); err != nil {
			w.terminate(domain.Error(err.Error(), metadata))
			return
		}
		w.terminate(domain.Done())
	}()

	return out
}

// sseEvent 一条 SSE 消息
type sseEvent struct {
	Event string
	Data  string
}

// readSSE 逐条解析 SSE 流，handle 返回 stop=true 时提前结束
func readSSE(r io.Reader, handle func(ev sseEvent) (stop bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)

	var current sseEvent
	var data []string

	dispatch := func() (bool, error) {
		if len(data) == 0 && current.Event == "" {
			return false, nil
		}
		current.Data = strings.Join(data, "\n")
		stop, err := handle(current)
		current = sseEvent{}
		data = data[:0]
		return stop, err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			stop, err := dispatch()
			if err != nil || stop {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// 注释/心跳
		case strings.HasPrefix(line, "event:"):
			current.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	// 流末尾可能缺少空行
	_, err := dispatch()
	return err
}

// readErrorBody 读取错误响应体（截断）
func readErrorBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}

// statusError 构建 HTTP 状态错误
func statusError(vendor string, resp *http.Response) error {
	return fmt.Errorf("%s API returned status %d: %s", vendor, resp.StatusCode, readErrorBody(resp))
}
