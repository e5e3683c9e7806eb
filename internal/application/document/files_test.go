package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocuments(t *testing.T) {
	docs, err := ParseDocuments([]byte(`  {"doc_id":"a","title":"Standup","content":"<p>x</p>"}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Standup", docs[0].Title)

	docs, err = ParseDocuments([]byte(`[{"title":"One"},{"title":"Two","date":"2025-01-02"}]`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2025-01-02", docs[1].Date)

	_, err = ParseDocuments([]byte("   "))
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = ParseDocuments([]byte("[{"))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "Weekly_sync-2025.txt")
	require.NoError(t, os.WriteFile(text, []byte("Speaker 1: hi"), 0o644))
	modTime := time.Date(2025, 3, 4, 10, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(text, modTime, modTime))

	docs, err := ParseFile(text)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, IngestInput{
		DocID:   "file_weekly_sync_2025",
		Title:   "Weekly sync 2025",
		Date:    "2025-03-04",
		Content: "Speaker 1: hi",
	}, docs[0])

	batch := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(batch, []byte(`[{"title":"A"},{"doc_id":"keep","title":"B"}]`), 0o644))
	docs, err = ParseFile(batch)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "file_batch_0", docs[0].DocID)
	assert.Equal(t, "keep", docs[1].DocID)

	empty := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	_, err = ParseFile(empty)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestInboxIngester_HandleFile(t *testing.T) {
	svc, index, _ := setupService(t, true)
	ingester := NewInboxIngester(svc)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "board-review.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>Revenue up</p>"), 0o644))
	require.NoError(t, ingester.HandleFile(ctx, path))

	doc, err := svc.Get(ctx, "file_board_review")
	require.NoError(t, err)
	assert.Equal(t, "board review", doc.Title)
	assert.Equal(t, "Revenue up", doc.FormattedContent)
	assert.Equal(t, InboxSource, doc.Source)
	assert.True(t, index.indexed("file_board_review"))

	// 同一文件再次写入覆盖原文档
	require.NoError(t, os.WriteFile(path, []byte("<p>Revenue flat</p>"), 0o644))
	require.NoError(t, ingester.HandleFile(ctx, path))
	doc, err = svc.Get(ctx, "file_board_review")
	require.NoError(t, err)
	assert.Equal(t, "Revenue flat", doc.FormattedContent)

	bad := filepath.Join(t.TempDir(), "untitled.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"content":"no title"}`), 0o644))
	assert.ErrorIs(t, ingester.HandleFile(ctx, bad), ErrInvalidDocument)
}
