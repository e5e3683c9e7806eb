package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// InboxSource 收件目录文档的来源标记
const InboxSource = "inbox"

// ErrEmptyInput 输入为空
var ErrEmptyInput = errors.New("input is empty")

var nonIDChars = regexp.MustCompile(`[^a-z0-9]+`)

// ParseDocuments 解析 JSON：单个文档对象或文档数组
func ParseDocuments(data []byte) ([]IngestInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if data[0] == '[' {
		var docs []IngestInput
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parse documents: %w", err)
		}
		return docs, nil
	}
	var doc IngestInput
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return []IngestInput{doc}, nil
}

// ParseFile 读取文档文件
// .json 按 ParseDocuments 解析，其他类型整个文件作为一篇文档：
// 标题取文件名，日期取修改时间，doc_id 由文件名派生，重复写入覆盖同一文档
func ParseFile(path string) ([]IngestInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		docs, err := ParseDocuments(data)
		if err != nil {
			return nil, err
		}
		stem := fileStem(path)
		for i := range docs {
			if docs[i].DocID == "" {
				docs[i].DocID = fileDocID(stem, i, len(docs))
			}
		}
		return docs, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	stem := fileStem(path)
	return []IngestInput{{
		DocID:   fileDocID(stem, 0, 1),
		Title:   titleFromStem(stem),
		Date:    info.ModTime().Format("2006-01-02"),
		Content: string(data),
	}}, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileDocID(stem string, i, n int) string {
	slug := strings.Trim(nonIDChars.ReplaceAllString(strings.ToLower(stem), "_"), "_")
	if slug == "" {
		slug = "untitled"
	}
	if n > 1 {
		return fmt.Sprintf("file_%s_%d", slug, i)
	}
	return "file_" + slug
}

func titleFromStem(stem string) string {
	title := strings.Join(strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
	if title == "" {
		return stem
	}
	return title
}

// InboxIngester 把收件目录文件写入文档服务
type InboxIngester struct {
	svc    *Service
	logger *slog.Logger
}

// NewInboxIngester 创建收件目录写入器
func NewInboxIngester(svc *Service) *InboxIngester {
	return &InboxIngester{
		svc:    svc,
		logger: log.NewModuleLogger("document", "inbox"),
	}
}

// HandleFile 解析并写入文件中的全部文档，任一文档失败时返回错误
func (i *InboxIngester) HandleFile(ctx context.Context, path string) error {
	inputs, err := ParseFile(path)
	if err != nil {
		return err
	}
	var errs []error
	for _, in := range inputs {
		if in.Source == "" {
			in.Source = InboxSource
		}
		result, err := i.svc.Ingest(ctx, in)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in.DocID, err))
			continue
		}
		i.logger.Debug("Document ingested from inbox",
			"doc_id", result.Document.DocID,
			"chunks", result.Chunks,
			"file", filepath.Base(path),
		)
	}
	return errors.Join(errs...)
}
