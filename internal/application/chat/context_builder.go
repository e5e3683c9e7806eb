package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// CharsPerToken 粗略估算：4 个字符约等于 1 个 token
const CharsPerToken = 4

// DefaultRAGTopK RAG 默认检索片段数
const DefaultRAGTopK = 3

const (
	truncationMarker = "\n\n[Document truncated to fit context limit]"
	documentsHeader  = "<user_documents>\nThe user has referenced the following meeting transcripts. Use them to answer their question.\n\n"
	documentsFooter  = "\n</user_documents>"
	ragHeader        = "# Relevant context from meeting transcripts\n"
)

// 来源类型
const (
	SourceMention = "mention"
	SourceRAG     = "rag"
)

// 解析失败原因
const (
	ReasonNotFound    = "not_found"
	ReasonLookupError = "lookup_error"
)

// DocumentLookup 按 doc_id 查找文档，不存在时返回 nil, nil
type DocumentLookup interface {
	Get(ctx context.Context, docID string) (*domainChat.Document, error)
}

// Retriever 语义检索服务，docIDs 非空时限定在这些文档内
type Retriever interface {
	Search(ctx context.Context, query string, limit int, docIDs []string) ([]domainChat.RetrievalHit, error)
}

// LimitsProvider 按模型提供上下文预算，*config.ModelCatalog 实现该接口
type LimitsProvider interface {
	LimitsFor(modelID string) config.ModelLimits
}

// Source 上下文来源
type Source struct {
	DocID string `json:"doc_id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// TruncationInfo 单个文档的截断情况
type TruncationInfo struct {
	DocID           string `json:"doc_id"`
	Title           string `json:"title"`
	Truncated       bool   `json:"truncated"`
	PercentIncluded int    `json:"percent_included"`
}

// FailedMention 未能解析的 @mention
type FailedMention struct {
	DocID  string `json:"doc_id"`
	Reason string `json:"reason"`
}

// ContextResult 上下文构建结果，Context 为 nil 表示没有上下文
type ContextResult struct {
	Context        *string
	Sources        []Source
	TruncationInfo []TruncationInfo
	FailedMentions []FailedMention
	// RAGHits 仅 RAG 路径填充，供工具调用审计
	RAGHits []domainChat.RetrievalHit
}

// HasSources 是否需要下发 sources 事件
func (r *ContextResult) HasSources() bool {
	return len(r.Sources) > 0 || len(r.FailedMentions) > 0
}

// BuildRequest 上下文构建参数
type BuildRequest struct {
	Mentions []string
	UseRAG   bool
	Query    string
	Model    string
}

// ContextBuilder 根据 @mention 或 RAG 组装模型上下文
type ContextBuilder struct {
	docs      DocumentLookup
	retriever Retriever
	limits    LimitsProvider
	topK      int
	logger    *slog.Logger
}

// NewContextBuilder 创建上下文构建器
func NewContextBuilder(docs DocumentLookup, retriever Retriever, limits LimitsProvider, ragCfg *config.RAGConfig) *ContextBuilder {
	topK := DefaultRAGTopK
	if ragCfg != nil && ragCfg.TopK > 0 {
		topK = ragCfg.TopK
	}
	return &ContextBuilder{
		docs:      docs,
		retriever: retriever,
		limits:    limits,
		topK:      topK,
		logger:    log.NewModuleLogger("chat", "context_builder"),
	}
}

// Build @mention 优先；没有 mention 且开启 RAG 时走检索
func (b *ContextBuilder) Build(ctx context.Context, req BuildRequest) *ContextResult {
	if len(req.Mentions) > 0 {
		return b.BuildFromMentions(ctx, req.Mentions, req.Model)
	}
	if req.UseRAG && req.Query != "" {
		return b.BuildFromRAG(ctx, req.Query)
	}
	return &ContextResult{}
}

// BuildFromMentions 按提及顺序装入文档，超出预算的文档被截断或跳过
func (b *ContextBuilder) BuildFromMentions(ctx context.Context, mentions []string, model string) *ContextResult {
	result := &ContextResult{}
	if len(mentions) == 0 {
		return result
	}
	logger := log.FromContext(ctx, b.logger)

	limits := b.limits.LimitsFor(model)
	if len(mentions) > limits.MaxMentions {
		mentions = mentions[:limits.MaxMentions]
	}

	var blocks []string
	tokensUsed := 0

	for _, docID := range mentions {
		doc, err := b.docs.Get(ctx, docID)
		if err != nil {
			logger.Warn("Mention lookup error", "doc_id", docID, "error", err)
			result.FailedMentions = append(result.FailedMentions, FailedMention{DocID: docID, Reason: ReasonLookupError})
			continue
		}
		if doc == nil {
			logger.Warn("Mention lookup failed, document not found", "doc_id", docID)
			result.FailedMentions = append(result.FailedMentions, FailedMention{DocID: docID, Reason: ReasonNotFound})
			continue
		}

		content := doc.FormattedContent
		contentTokens := EstimateTokens(content)
		remaining := limits.ContextLimit - tokensUsed

		if remaining <= 0 {
			result.TruncationInfo = append(result.TruncationInfo, TruncationInfo{
				DocID: doc.DocID, Title: doc.Title, Truncated: true, PercentIncluded: 0,
			})
			logger.Info("Skipped document, no token budget remaining", "doc_id", doc.DocID)
			continue
		}

		if contentTokens > remaining {
			content = truncateRunes(content, remaining*CharsPerToken) + truncationMarker
			percent := int(math.Round(float64(remaining) / float64(contentTokens) * 100))
			result.TruncationInfo = append(result.TruncationInfo, TruncationInfo{
				DocID: doc.DocID, Title: doc.Title, Truncated: true, PercentIncluded: percent,
			})
			logger.Info("Truncated document", "doc_id", doc.DocID, "percent_included", percent)
		} else {
			result.TruncationInfo = append(result.TruncationInfo, TruncationInfo{
				DocID: doc.DocID, Title: doc.Title, Truncated: false, PercentIncluded: 100,
			})
		}

		tokensUsed += EstimateTokens(content)
		blocks = append(blocks, formatDocument(doc, content))
		result.Sources = append(result.Sources, Source{DocID: doc.DocID, Title: doc.Title, Type: SourceMention})
	}

	if len(blocks) == 0 {
		// 没有文档装入时只保留失败列表
		return &ContextResult{FailedMentions: result.FailedMentions}
	}

	text := documentsHeader + strings.Join(blocks, "\n\n") + documentsFooter
	result.Context = &text
	return result
}

// BuildFromRAG 语义检索，任何检索错误都视为没有上下文
func (b *ContextBuilder) BuildFromRAG(ctx context.Context, query string) *ContextResult {
	logger := log.FromContext(ctx, b.logger)
	if b.retriever == nil {
		return &ContextResult{}
	}

	hits, err := b.retriever.Search(ctx, query, b.topK, nil)
	if err != nil {
		logger.Warn("RAG search failed", "error", err)
		return &ContextResult{}
	}
	if len(hits) == 0 {
		return &ContextResult{}
	}

	parts := []string{ragHeader}
	result := &ContextResult{RAGHits: hits}
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("--- From \"%s\" (%s) ---", h.Title, h.Date), h.Content, "")
		if !seen[h.DocID] {
			seen[h.DocID] = true
			result.Sources = append(result.Sources, Source{DocID: h.DocID, Title: h.Title, Type: SourceRAG})
		}
	}

	text := strings.Join(parts, "\n")
	result.Context = &text
	logger.Info("RAG retrieved context", "chunks", len(hits), "documents", len(result.Sources))
	return result
}

// EstimateTokens 按字符数估算 token
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / CharsPerToken
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func formatDocument(doc *domainChat.Document, content string) string {
	date := doc.Date
	if date == "" {
		date = "Unknown"
	}
	return fmt.Sprintf("<document title=\"%s\" date=\"%s\" doc_id=\"%s\">\n%s\n</document>", doc.Title, date, doc.DocID, content)
}
