package document

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/vector"
)

// DefaultSearchResults 检索接口默认返回条数
const DefaultSearchResults = 5

var (
	// ErrIndexDisabled 未启用向量索引
	ErrIndexDisabled = errors.New("vector index is disabled")
	// ErrInvalidDocument 缺少标题
	ErrInvalidDocument = errors.New("title is required")
	// ErrReindexRunning 已有批量索引在运行
	ErrReindexRunning = errors.New("reindex already running")
)

// Index 文档向量索引，*vector.DocumentIndex 实现该接口
type Index interface {
	Index(ctx context.Context, doc vector.IndexDocument) (int, error)
	Delete(ctx context.Context, docID string) error
	Search(ctx context.Context, query string, limit int, docIDs []string) ([]vector.SearchHit, error)
	Stats(ctx context.Context) (*vector.Stats, error)
}

// IngestInput 写入文档参数
type IngestInput struct {
	DocID   string `json:"doc_id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// IngestResult 写入结果，Chunks 为 -1 表示未索引
type IngestResult struct {
	Document *domainChat.Document `json:"document"`
	Chunks   int                  `json:"chunks"`
}

// ReindexResult 批量索引结果
type ReindexResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
	Chunks  int `json:"chunks"`
}

// Service 会议纪要文档管理：存储、规范化、向量索引
type Service struct {
	repo   domainChat.DocumentRepository
	index  Index
	logger *slog.Logger

	mu         sync.Mutex
	reindexing bool
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewService 创建文档服务，RAG 关闭时不使用向量索引
func NewService(repo domainChat.DocumentRepository, index Index, cfg *config.RAGConfig) *Service {
	s := &Service{
		repo:     repo,
		logger:   log.NewModuleLogger("document", "service"),
		stopChan: make(chan struct{}),
	}
	if cfg == nil || cfg.Enabled {
		s.index = index
	}
	return s
}

// IndexEnabled 是否启用向量索引
func (s *Service) IndexEnabled() bool {
	return s.index != nil
}

// Ingest 规范化内容后写入存储，再写入向量索引
// 索引失败只记录日志
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrInvalidDocument
	}
	if in.DocID == "" {
		in.DocID = NewDocID()
	}
	content, err := NormalizeContent(in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize content: %w", err)
	}

	doc := &domainChat.Document{
		DocID:            in.DocID,
		Title:            in.Title,
		Date:             in.Date,
		FormattedContent: content,
		Source:           in.Source,
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return nil, err
	}

	result := &IngestResult{Document: doc, Chunks: -1}
	if s.index == nil {
		return result, nil
	}
	chunks, err := s.index.Index(ctx, toIndexDocument(doc))
	if err != nil {
		log.FromContext(ctx, s.logger).Warn("Failed to index document", "doc_id", doc.DocID, "error", err)
		return result, nil
	}
	result.Chunks = chunks
	return result, nil
}

// Get 获取文档
func (s *Service) Get(ctx context.Context, docID string) (*domainChat.Document, error) {
	doc, err := s.repo.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domainChat.ErrDocumentNotFound
	}
	return doc, nil
}

// List 列出文档；query 非空时按标题匹配
func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]*domainChat.Document, error) {
	var (
		docs []*domainChat.Document
		err  error
	)
	if query != "" {
		docs, err = s.repo.SearchByTitle(ctx, query, limit)
	} else {
		docs, err = s.repo.List(ctx, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*domainChat.Document{}
	}
	return docs, nil
}

// Delete 从存储和向量索引删除文档
func (s *Service) Delete(ctx context.Context, docID string) error {
	found, err := s.repo.Delete(ctx, docID)
	if err != nil {
		return err
	}
	if !found {
		return domainChat.ErrDocumentNotFound
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, docID); err != nil {
			log.FromContext(ctx, s.logger).Warn("Failed to delete document chunks", "doc_id", docID, "error", err)
		}
	}
	return nil
}

// Search 语义检索文档片段
func (s *Service) Search(ctx context.Context, query string, limit int, docIDs []string) ([]vector.SearchHit, error) {
	if s.index == nil {
		return nil, ErrIndexDisabled
	}
	if limit <= 0 {
		limit = DefaultSearchResults
	}
	return s.index.Search(ctx, query, limit, docIDs)
}

// Embed 重新索引单个文档，返回片段数
func (s *Service) Embed(ctx context.Context, docID string) (int, error) {
	if s.index == nil {
		return 0, ErrIndexDisabled
	}
	doc, err := s.Get(ctx, docID)
	if err != nil {
		return 0, err
	}
	return s.index.Index(ctx, toIndexDocument(doc))
}

// Reindex 同步重新索引全部文档，单个文档失败不中断
func (s *Service) Reindex(ctx context.Context) (*ReindexResult, error) {
	if s.index == nil {
		return nil, ErrIndexDisabled
	}
	docs, err := s.allDocuments(ctx)
	if err != nil {
		return nil, err
	}

	logger := log.FromContext(ctx, s.logger)
	result := &ReindexResult{}
	for _, doc := range docs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		chunks, err := s.index.Index(ctx, toIndexDocument(doc))
		if err != nil {
			logger.Warn("Failed to index document", "doc_id", doc.DocID, "error", err)
			result.Failed++
			continue
		}
		result.Indexed++
		result.Chunks += chunks
	}
	logger.Info("Reindex finished", "indexed", result.Indexed, "failed", result.Failed, "chunks", result.Chunks)
	return result, nil
}

// ReindexAsync 后台重新索引全部文档，返回待处理文档数
func (s *Service) ReindexAsync(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, ErrIndexDisabled
	}
	docs, err := s.allDocuments(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reindexing {
		return 0, ErrReindexRunning
	}
	s.reindexing = true

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer func() {
			s.mu.Lock()
			s.reindexing = false
			s.mu.Unlock()
		}()

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-s.stopChan:
				cancel()
			case <-done:
			}
		}()

		if _, err := s.Reindex(bgCtx); err != nil {
			s.logger.Warn("Background reindex stopped", "error", err)
		}
	}()
	return len(docs), nil
}

// Stop 取消后台索引并等待退出
func (s *Service) Stop() {
	s.mu.Lock()
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Stats 向量索引统计
func (s *Service) Stats(ctx context.Context) (*vector.Stats, error) {
	if s.index == nil {
		return nil, ErrIndexDisabled
	}
	return s.index.Stats(ctx)
}

// allDocuments 分页读取全部文档
func (s *Service) allDocuments(ctx context.Context) ([]*domainChat.Document, error) {
	const page = 100
	var all []*domainChat.Document
	for offset := 0; ; offset += page {
		docs, err := s.repo.List(ctx, page, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, docs...)
		if len(docs) < page {
			return all, nil
		}
	}
}

// NewDocID 手动上传文档的 ID：doc_ 加 9 位数字
func NewDocID() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8]) % 1_000_000_000
	return fmt.Sprintf("doc_%d", n)
}

func toIndexDocument(doc *domainChat.Document) vector.IndexDocument {
	return vector.IndexDocument{
		DocID:   doc.DocID,
		Title:   doc.Title,
		Date:    doc.Date,
		Content: doc.FormattedContent,
	}
}
