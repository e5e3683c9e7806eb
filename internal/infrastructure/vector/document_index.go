package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/qdrant/go-client/qdrant"
)

// PointStore DocumentIndex 用到的 Qdrant 客户端方法，*qdrant.Client 实现该接口
type PointStore interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
}

// Embedder 文本向量化
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IndexDocument 待索引的文档
type IndexDocument struct {
	DocID   string
	Title   string
	Date    string
	Content string
}

// SearchHit 检索命中的文档片段
type SearchHit struct {
	ChunkID  string  `json:"chunk_id"`
	DocID    string  `json:"doc_id"`
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
}

// DocumentIndex 会议纪要的向量索引
type DocumentIndex struct {
	store        PointStore
	embedder     Embedder
	collection   string
	dimension    uint64
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger

	ensureMu sync.Mutex
	ensured  bool
}

// NewDocumentIndex 创建文档向量索引
func NewDocumentIndex(store PointStore, embedder Embedder, cfg *config.RAGConfig) *DocumentIndex {
	return &DocumentIndex{
		store:        store,
		embedder:     embedder,
		collection:   cfg.Collection,
		dimension:    uint64(cfg.EmbeddingDimension),
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       log.NewModuleLogger("vector", "document_index"),
	}
}

// EnsureCollection 确保集合存在（余弦距离）
func (i *DocumentIndex) EnsureCollection(ctx context.Context) error {
	i.ensureMu.Lock()
	defer i.ensureMu.Unlock()
	if i.ensured {
		return nil
	}

	exists, err := i.store.CollectionExists(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", i.collection, err)
	}
	if !exists {
		err := i.store.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: i.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     i.dimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", i.collection, err)
		}
		i.logger.Info("Created vector collection", "collection", i.collection, "dimension", i.dimension)
	}

	i.ensured = true
	return nil
}

// Index 重新索引文档：先删除旧片段，再写入新片段
// 返回片段数
func (i *DocumentIndex) Index(ctx context.Context, doc IndexDocument) (int, error) {
	if err := i.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	if err := i.Delete(ctx, doc.DocID); err != nil {
		return 0, err
	}

	chunks := ChunkText(doc.Content, i.chunkSize, i.chunkOverlap)
	if len(chunks) == 0 {
		i.logger.Warn("No chunks created for document", "doc_id", doc.DocID)
		return 0, nil
	}

	vectors, err := i.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors))
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for idx, chunk := range chunks {
		points[idx] = &qdrant.PointStruct{
			Id:      qdrant.NewID(ChunkPointID(doc.DocID, idx)),
			Vectors: qdrant.NewVectors(vectors[idx]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":     ChunkName(doc.DocID, idx),
				"doc_id":       doc.DocID,
				"title":        doc.Title,
				"date":         doc.Date,
				"chunk_index":  idx,
				"total_chunks": len(chunks),
				"content":      chunk,
			}),
		}
	}

	wait := true
	if _, err := i.store.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	i.logger.Info("Indexed document", "doc_id", doc.DocID, "chunks", len(chunks))
	return len(chunks), nil
}

// Delete 删除文档的所有片段
func (i *DocumentIndex) Delete(ctx context.Context, docID string) error {
	if err := i.EnsureCollection(ctx); err != nil {
		return err
	}
	wait := true
	_, err := i.store.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: i.collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", docID, err)
	}
	return nil
}

// Search 语义检索，docIDs 非空时只在这些文档内检索
func (i *DocumentIndex) Search(ctx context.Context, query string, limit int, docIDs []string) ([]SearchHit, error) {
	if err := i.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	vector, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	n := uint64(limit)
	points, err := i.store.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &n,
		Filter:         buildDocFilter(docIDs),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	hits := make([]SearchHit, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		if payload == nil {
			continue
		}
		hits = append(hits, SearchHit{
			ChunkID:  payload["chunk_id"].GetStringValue(),
			DocID:    payload["doc_id"].GetStringValue(),
			Title:    payload["title"].GetStringValue(),
			Date:     payload["date"].GetStringValue(),
			Content:  payload["content"].GetStringValue(),
			Distance: 1 - p.GetScore(),
		})
	}
	return hits, nil
}

// Stats 索引统计
type Stats struct {
	Collection  string `json:"collection"`
	TotalChunks uint64 `json:"total_chunks"`
}

// Stats 返回集合中的片段数
func (i *DocumentIndex) Stats(ctx context.Context) (*Stats, error) {
	if err := i.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	exact := true
	count, err := i.store.Count(ctx, &qdrant.CountPoints{
		CollectionName: i.collection,
		Exact:          &exact,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}
	return &Stats{Collection: i.collection, TotalChunks: count}, nil
}

// buildDocFilter 单个文档用 must，多个文档用 should（OR）
func buildDocFilter(docIDs []string) *qdrant.Filter {
	switch len(docIDs) {
	case 0:
		return nil
	case 1:
		return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docIDs[0])}}
	}
	conditions := make([]*qdrant.Condition, len(docIDs))
	for idx, id := range docIDs {
		conditions[idx] = qdrant.NewMatch("doc_id", id)
	}
	return &qdrant.Filter{Should: conditions}
}

// ChunkName 片段的可读名称
func ChunkName(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// ChunkPointID 片段的确定性点 ID（Qdrant 要求 UUID 或整数）
func ChunkPointID(docID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ChunkName(docID, index))).String()
}

// ChunkText 按字符切分文本，相邻片段重叠 overlap 个字符
func ChunkText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
