package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI 执行命令并返回标准输出
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		noIndex = false
		docsQuery = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("OXYCHAT_DB_PATH", dbPath)

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, dbPath)
	assert.FileExists(t, dbPath)
}

func TestDocumentsIngestAndList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OXYCHAT_DB_PATH", filepath.Join(dir, "cli.db"))

	input := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(input, []byte(`[
		{"doc_id":"doc_1","title":"Weekly sync","date":"2025-01-06","content":"<p>Agenda</p>"},
		{"doc_id":"doc_2","title":"Board review","date":"2025-01-07","content":"Numbers"}
	]`), 0o644))

	out, err := runCLI(t, "documents", "ingest", input, "--no-index")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested doc_1 (not indexed)")
	assert.Contains(t, out, "ingested doc_2 (not indexed)")

	out, err = runCLI(t, "docs", "list", "-q", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Weekly sync")
	assert.NotContains(t, out, "Board review")
}

func TestModelsCommand(t *testing.T) {
	t.Setenv("OXYCHAT_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))

	out, err := runCLI(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "claude-sonnet-4.5")
	assert.Contains(t, out, "PROVIDER")
}

func TestDocumentsIngestTextFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OXYCHAT_DB_PATH", filepath.Join(dir, "cli.db"))

	input := filepath.Join(dir, "design_review.txt")
	require.NoError(t, os.WriteFile(input, []byte("Speaker 1: ship it"), 0o644))

	out, err := runCLI(t, "documents", "ingest", input, "--no-index")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested file_design_review (not indexed)")

	out, err = runCLI(t, "docs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "design review")
}
