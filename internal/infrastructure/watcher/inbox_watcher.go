package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// supportedExts 收件目录接受的文件类型
var supportedExts = map[string]bool{
	".json": true,
	".html": true,
	".htm":  true,
	".txt":  true,
	".md":   true,
}

// FileHandler 处理收件目录中的单个文件
type FileHandler interface {
	HandleFile(ctx context.Context, path string) error
}

// InboxWatcher 监听文档收件目录，文件写入稳定后交给 FileHandler
type InboxWatcher struct {
	dir      string
	debounce time.Duration
	handler  FileHandler
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	// 防抖
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex
	stopped        bool

	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewInboxWatcher 创建收件目录监听器；未配置目录时返回 nil
func NewInboxWatcher(cfg *config.InboxConfig, handler FileHandler) *InboxWatcher {
	if cfg == nil || cfg.Dir == "" {
		return nil
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &InboxWatcher{
		dir:            cfg.Dir,
		debounce:       debounce,
		handler:        handler,
		logger:         log.NewModuleLogger("watcher", "inbox"),
		debounceTimers: make(map[string]*time.Timer),
		ctx:            ctx,
		cancel:         cancel,
		stopCh:         make(chan struct{}),
	}
}

// Dir 监听目录
func (w *InboxWatcher) Dir() string {
	return w.dir
}

// Start 处理目录中已有文件，然后开始监听
func (w *InboxWatcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch inbox dir: %w", err)
	}
	w.watcher = fsw

	w.logger.Info("Starting inbox watcher", "dir", w.dir, "debounce", w.debounce)
	count := w.scan()
	if count > 0 {
		w.logger.Info("Queued existing inbox files", "count", count)
	}

	w.wg.Add(1)
	go w.watchLoop()
	return nil
}

// Stop 停止监听，等待进行中的文件处理结束
func (w *InboxWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping inbox watcher")

		w.debounceMu.Lock()
		w.stopped = true
		for path, timer := range w.debounceTimers {
			timer.Stop()
			delete(w.debounceTimers, path)
		}
		w.debounceMu.Unlock()

		close(w.stopCh)
		w.cancel()
		if w.watcher != nil {
			w.watcher.Close()
		}
		w.wg.Wait()

		w.logger.Info("Inbox watcher stopped")
	})
}

// scan 把目录中已有的文件加入处理队列
func (w *InboxWatcher) scan() int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("Failed to read inbox dir", "error", err)
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !accepts(path) {
			continue
		}
		w.schedule(path)
		count++
	}
	return count
}

// watchLoop 事件监听循环
func (w *InboxWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if accepts(event.Name) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

// schedule 重置文件的防抖定时器
func (w *InboxWatcher) schedule(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.stopped {
		return
	}

	if timer, exists := w.debounceTimers[path]; exists {
		timer.Stop()
	}
	w.debounceTimers[path] = time.AfterFunc(w.debounce, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		if w.stopped {
			w.debounceMu.Unlock()
			return
		}
		w.wg.Add(1)
		w.debounceMu.Unlock()

		defer w.wg.Done()
		w.process(path)
	})
}

func (w *InboxWatcher) process(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// 防抖期间被删除或移走
		return
	}
	if err := w.handler.HandleFile(w.ctx, path); err != nil {
		w.logger.Warn("Failed to ingest inbox file", "path", path, "error", err)
		return
	}
	w.logger.Info("Ingested inbox file", "path", path)
}

// accepts 过滤隐藏文件、编辑器临时文件与不支持的扩展名
func accepts(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") || strings.HasSuffix(name, "~") {
		return false
	}
	return supportedExts[strings.ToLower(filepath.Ext(name))]
}
