package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	paths map[string]int
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{paths: make(map[string]int)}
}

func (h *recordingHandler) HandleFile(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths[filepath.Base(path)]++
	return nil
}

func (h *recordingHandler) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paths[name]
}

func startWatcher(t *testing.T, dir string, handler FileHandler) *InboxWatcher {
	t.Helper()
	w := NewInboxWatcher(&config.InboxConfig{Dir: dir, Debounce: 20 * time.Millisecond}, handler)
	require.NotNil(t, w)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return w
}

func TestNewInboxWatcher_Disabled(t *testing.T) {
	assert.Nil(t, NewInboxWatcher(&config.InboxConfig{}, newRecordingHandler()))
	assert.Nil(t, NewInboxWatcher(nil, newRecordingHandler()))
}

func TestInboxWatcher_ExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "standup.txt"), []byte("notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o644))

	handler := newRecordingHandler()
	startWatcher(t, dir, handler)

	assert.Eventually(t, func() bool { return handler.count("standup.txt") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, handler.count("image.png"))
}

func TestInboxWatcher_NewFiles(t *testing.T) {
	dir := t.TempDir()
	handler := newRecordingHandler()
	startWatcher(t, dir, handler)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "retro.html"), []byte("<p>ok</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".retro.html.swp"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return handler.count("retro.html") >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, handler.count(".retro.html.swp"))
}

func TestInboxWatcher_CreatesDirAndStopsTwice(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "inbox")
	w := startWatcher(t, dir, newRecordingHandler())
	assert.DirExists(t, dir)
	assert.Equal(t, dir, w.Dir())

	w.Stop()
	w.Stop()
}

func TestAccepts(t *testing.T) {
	tests := map[string]bool{
		"/in/meeting.json": true,
		"/in/Notes.MD":     true,
		"/in/page.htm":     true,
		"/in/.hidden.txt":  false,
		"/in/~lock.txt":    false,
		"/in/draft.txt~":   false,
		"/in/archive.zip":  false,
	}
	for path, want := range tests {
		assert.Equal(t, want, accepts(path), path)
	}
}
