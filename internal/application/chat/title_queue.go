package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/metrics"
)

// 标题任务结果
const (
	TitleApplied  = "applied"
	TitleSkipped  = "skipped"
	TitleFallback = "fallback"
	TitleFailed   = "failed"
	TitleDropped  = "dropped"
)

// TitleGenerator 生成会话标题
type TitleGenerator interface {
	Generate(ctx context.Context, userQuery string) (string, error)
}

// EventPublisher 推送会话事件，*websocket.Hub 实现该接口
type EventPublisher interface {
	Publish(event domainChat.ConversationEvent)
}

// TitleJob 自动标题任务
type TitleJob struct {
	ConversationID string
	UserQuery      string
}

// TitleQueue 后台自动标题队列
// 任务失败只记录日志和指标，不影响聊天请求
type TitleQueue struct {
	conversations domainChat.ConversationRepository
	generator     TitleGenerator
	events        EventPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	timeout       time.Duration

	jobs    chan TitleJob
	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup
}

// NewTitleQueue 创建标题队列，events 可为 nil
func NewTitleQueue(cfg *config.TitleConfig, generator TitleGenerator, conversations domainChat.ConversationRepository, events EventPublisher, m *metrics.Metrics) *TitleQueue {
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TitleQueue{
		conversations: conversations,
		generator:     generator,
		events:        events,
		metrics:       m,
		logger:        log.NewModuleLogger("chat", "title_queue"),
		timeout:       timeout,
		jobs:          make(chan TitleJob, size),
	}
}

// Start 启动 worker
func (q *TitleQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.stopped {
		return
	}
	q.running = true
	q.wg.Add(1)
	go q.worker()
	q.logger.Info("Title queue started", "capacity", cap(q.jobs))
}

// Enqueue 提交任务，队列已满或已停止时丢弃并返回 false
func (q *TitleQueue) Enqueue(conversationID, userQuery string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		q.metrics.ObserveTitleJob(TitleDropped)
		return false
	}
	select {
	case q.jobs <- TitleJob{ConversationID: conversationID, UserQuery: userQuery}:
		return true
	default:
		q.logger.Warn("Title queue full, dropping job", "conversation_id", conversationID)
		q.metrics.ObserveTitleJob(TitleDropped)
		return false
	}
}

// Stop 停止接收任务，处理完已排队的任务后返回
func (q *TitleQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	running := q.running
	q.mu.Unlock()

	if !running {
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("Title queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *TitleQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(job)
	}
}

// process 单个任务，生成失败时使用默认标题
func (q *TitleQueue) process(job TitleJob) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = log.WithConversationID(ctx, job.ConversationID)
	logger := log.FromContext(ctx, q.logger)

	outcome := TitleApplied
	title, err := q.generator.Generate(ctx, job.UserQuery)
	if err != nil || title == "" {
		logger.Warn("Title generation failed, using default", "error", err)
		title = domainChat.DefaultTitle
		outcome = TitleFallback
	}

	applied, err := q.conversations.ApplyAutoTitle(ctx, job.ConversationID, title)
	if err != nil {
		logger.Error("Failed to auto-title conversation", "error", err)
		q.metrics.ObserveTitleJob(TitleFailed)
		return
	}
	if !applied {
		logger.Info("Conversation already titled, skipping")
		q.metrics.ObserveTitleJob(TitleSkipped)
		return
	}

	logger.Info("Auto-titled conversation", "title", title)
	q.metrics.ObserveTitleJob(outcome)
	if q.events != nil {
		q.events.Publish(domainChat.ConversationEvent{
			Type:           domainChat.EventConversationTitled,
			ConversationID: job.ConversationID,
			Title:          title,
		})
	}
}
