package document

import (
	"context"

	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

var _ appChat.Retriever = (*RetrievalService)(nil)

// RetrievalService 为上下文构建提供检索，索引关闭时返回 ErrIndexDisabled
type RetrievalService struct {
	docs *Service
}

// NewRetrievalService 创建检索服务
func NewRetrievalService(docs *Service) *RetrievalService {
	return &RetrievalService{docs: docs}
}

// Search 检索片段并转换为领域命中
func (r *RetrievalService) Search(ctx context.Context, query string, limit int, docIDs []string) ([]domainChat.RetrievalHit, error) {
	hits, err := r.docs.Search(ctx, query, limit, docIDs)
	if err != nil {
		return nil, err
	}
	out := make([]domainChat.RetrievalHit, len(hits))
	for i, h := range hits {
		out[i] = domainChat.RetrievalHit{
			DocID:    h.DocID,
			Title:    h.Title,
			Date:     h.Date,
			Content:  h.Content,
			Distance: h.Distance,
		}
	}
	return out, nil
}
