package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	appDocument "github.com/ndrwsmyth/oxychat/internal/application/document"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/vector"
)

// DocumentHandler 会议纪要文档处理器
type DocumentHandler struct {
	documents *appDocument.Service
	logger    *slog.Logger
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(documents *appDocument.Service) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		logger:    log.NewModuleLogger("http", "documents"),
	}
}

// DocumentSummary 文档列表项，不含正文
type DocumentSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Source string `json:"source"`
}

// IngestRequest 上传文档请求，doc_id 缺省时自动生成
type IngestRequest struct {
	DocID   string `json:"doc_id"`
	Title   string `json:"title" binding:"required"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// DocumentSearchRequest 语义检索请求
type DocumentSearchRequest struct {
	Query    string   `json:"query" binding:"required"`
	NResults int      `json:"n_results"`
	DocIDs   []string `json:"doc_ids"`
}

func toSummary(doc *domainChat.Document) DocumentSummary {
	return DocumentSummary{ID: doc.DocID, Title: doc.Title, Date: doc.Date, Source: doc.Source}
}

// List 列出文档，q 非空时按标题匹配
// GET /api/documents?q=&limit=&offset=
func (h *DocumentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := h.documents.List(c.Request.Context(), c.Query("q"), limit, offset)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	items := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		items = append(items, toSummary(d))
	}
	c.JSON(http.StatusOK, gin.H{"documents": items})
}

// Get 获取文档全文
// GET /api/documents/:doc_id
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("doc_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Ingest 写入文档并建立索引
// POST /api/documents
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}
	result, err := h.documents.Ingest(c.Request.Context(), appDocument.IngestInput{
		DocID:   req.DocID,
		Title:   req.Title,
		Date:    req.Date,
		Content: req.Content,
		Source:  req.Source,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      result.Document.DocID,
		"title":   result.Document.Title,
		"date":    result.Document.Date,
		"source":  result.Document.Source,
		"chunks":  result.Chunks,
		"indexed": result.Chunks >= 0,
	})
}

// Delete 删除文档及其向量片段
// DELETE /api/documents/:doc_id
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID := c.Param("doc_id")
	if err := h.documents.Delete(c.Request.Context(), docID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "doc_id": docID})
}

// Search 语义检索文档片段
// POST /api/documents/search
func (h *DocumentHandler) Search(c *gin.Context) {
	var req DocumentSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	hits, err := h.documents.Search(c.Request.Context(), req.Query, req.NResults, req.DocIDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if hits == nil {
		hits = []vector.SearchHit{}
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// Embed 重新索引单个文档
// POST /api/documents/:doc_id/embed
func (h *DocumentHandler) Embed(c *gin.Context) {
	docID := c.Param("doc_id")
	chunks, err := h.documents.Embed(c.Request.Context(), docID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "embedded", "doc_id": docID, "chunks": chunks})
}

// EmbedAll 后台重新索引全部文档
// POST /api/documents/embed-all
func (h *DocumentHandler) EmbedAll(c *gin.Context) {
	count, err := h.documents.ReindexAsync(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if count == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "no_documents", "count": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "started",
		"count":   count,
		"message": "Embedding started in background",
	})
}

// VectorStats 向量索引统计
// GET /api/documents/vector-stats
func (h *DocumentHandler) VectorStats(c *gin.Context) {
	stats, err := h.documents.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
