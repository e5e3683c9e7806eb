package chat

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testStore 已迁移的临时 SQLite 及其仓储
type testStore struct {
	db            *sql.DB
	conversations *storage.ConversationRepository
	messages      *storage.MessageRepository
	toolCalls     *storage.ToolCallRepository
	agentSteps    *storage.AgentStepRepository
	documents     *storage.DocumentRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := storage.OpenDB(&config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "chat.db")})
	require.NoError(t, err)
	_, err = storage.Migrate(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &testStore{
		db:            db,
		conversations: storage.NewConversationRepository(db),
		messages:      storage.NewMessageRepository(db),
		toolCalls:     storage.NewToolCallRepository(db),
		agentSteps:    storage.NewAgentStepRepository(db),
		documents:     storage.NewDocumentRepository(db),
	}
}

// fixedLimits 固定预算
type fixedLimits config.ModelLimits

func (l fixedLimits) LimitsFor(string) config.ModelLimits {
	return config.ModelLimits(l)
}

// mapDocs 内存文档表，errs 中的 doc_id 查询返回错误
type mapDocs struct {
	docs map[string]*domainChat.Document
	errs map[string]error
}

func (m *mapDocs) Get(_ context.Context, docID string) (*domainChat.Document, error) {
	if err, ok := m.errs[docID]; ok {
		return nil, err
	}
	return m.docs[docID], nil
}

// MockRetriever 模拟检索服务
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Search(ctx context.Context, query string, limit int, docIDs []string) ([]domainChat.RetrievalHit, error) {
	args := m.Called(ctx, query, limit, docIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainChat.RetrievalHit), args.Error(1)
}

// MockTitleGenerator 模拟标题生成
type MockTitleGenerator struct {
	mock.Mock
}

func (m *MockTitleGenerator) Generate(ctx context.Context, userQuery string) (string, error) {
	args := m.Called(ctx, userQuery)
	return args.String(0), args.Error(1)
}

// scriptedProvider 按脚本输出事件的适配器
type scriptedProvider struct {
	id     string
	events []provider.StreamEvent

	mu   sync.Mutex
	opts []provider.StreamOptions
	msgs [][]provider.ChatMessage
}

func (p *scriptedProvider) ModelID() string        { return p.id }
func (p *scriptedProvider) SupportsThinking() bool { return true }
func (p *scriptedProvider) HealthCheck(context.Context) bool {
	return true
}

func (p *scriptedProvider) Stream(ctx context.Context, messages []provider.ChatMessage, opts provider.StreamOptions) <-chan provider.StreamEvent {
	p.mu.Lock()
	p.opts = append(p.opts, opts)
	p.msgs = append(p.msgs, messages)
	p.mu.Unlock()

	out := make(chan provider.StreamEvent)
	go func() {
		defer close(out)
		for _, ev := range p.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (p *scriptedProvider) lastOptions() provider.StreamOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts[len(p.opts)-1]
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.opts)
}

// staticResolver 单模型解析器
type staticResolver struct {
	providers map[string]provider.Provider
}

func newResolver(ps ...provider.Provider) *staticResolver {
	r := &staticResolver{providers: make(map[string]provider.Provider)}
	for _, p := range ps {
		r.providers[p.ModelID()] = p
	}
	return r
}

func (r *staticResolver) Get(modelID string) (provider.Provider, error) {
	p, ok := r.providers[modelID]
	if !ok {
		return nil, &provider.UnknownModelError{Model: modelID, Available: r.List()}
	}
	return p, nil
}

func (r *staticResolver) List() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}

// recordingEnqueuer 记录提交的标题任务
type recordingEnqueuer struct {
	mu   sync.Mutex
	jobs []TitleJob
}

func (e *recordingEnqueuer) Enqueue(conversationID, userQuery string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, TitleJob{ConversationID: conversationID, UserQuery: userQuery})
	return true
}

func (e *recordingEnqueuer) all() []TitleJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TitleJob(nil), e.jobs...)
}

// runeCounter 以字符数作为 token 数
type runeCounter struct{}

func (runeCounter) CountTokens(text string) int {
	return len([]rune(text))
}

func collect(ch <-chan WireEvent) []WireEvent {
	var events []WireEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []WireEvent) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func strPtr(s string) *string { return &s }
