package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// DefaultDocumentSource 文档默认来源
const DefaultDocumentSource = "circleback"

// DocumentRepository 会议纪要文档仓储
type DocumentRepository struct {
	db *sql.DB
}

var _ chat.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `doc_id, title, date, formatted_content, source, created_at, updated_at`

// Get 获取文档，不存在返回 nil
func (r *DocumentRepository) Get(ctx context.Context, docID string) (*chat.Document, error) {
	doc, err := scanDocument(r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE doc_id = ?`, docID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// Upsert 写入或更新文档，保留首次创建时间
func (r *DocumentRepository) Upsert(ctx context.Context, doc *chat.Document) error {
	if doc.DocID == "" {
		return fmt.Errorf("document id is required")
	}
	if doc.Source == "" {
		doc.Source = DefaultDocumentSource
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	var date sql.NullString
	if doc.Date != "" {
		date = sql.NullString{String: doc.Date, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			title = excluded.title,
			date = excluded.date,
			formatted_content = excluded.formatted_content,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		doc.DocID,
		doc.Title,
		date,
		doc.FormattedContent,
		doc.Source,
		doc.CreatedAt.UnixMilli(),
		doc.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// List 按日期倒序列出文档
func (r *DocumentRepository) List(ctx context.Context, limit, offset int) ([]*chat.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(ctx,
		`SELECT `+documentColumns+` FROM documents
		ORDER BY COALESCE(date, '') DESC, created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset)
}

// Delete 删除文档
func (r *DocumentRepository) Delete(ctx context.Context, docID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// SearchByTitle 标题子串匹配（ASCII 不区分大小写）
func (r *DocumentRepository) SearchByTitle(ctx context.Context, query string, limit int) ([]*chat.Document, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.query(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE title LIKE '%' || ? || '%'
		ORDER BY COALESCE(date, '') DESC, created_at DESC
		LIMIT ?`,
		query, limit)
}

func (r *DocumentRepository) query(ctx context.Context, query string, args ...any) ([]*chat.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*chat.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(s rowScanner) (*chat.Document, error) {
	var doc chat.Document
	var date sql.NullString
	var createdAt, updatedAt int64
	if err := s.Scan(&doc.DocID, &doc.Title, &date, &doc.FormattedContent, &doc.Source, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	doc.Date = date.String
	doc.CreatedAt = time.UnixMilli(createdAt)
	doc.UpdatedAt = time.UnixMilli(updatedAt)
	return &doc, nil
}
