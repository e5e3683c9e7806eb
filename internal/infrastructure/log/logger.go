package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// 全局 logger 实例
var (
	defaultLogger *slog.Logger
	debugMode     bool
	logFile       *os.File
)

// Init 初始化日志系统
// Output 为 file:/path 时同时输出到 stdout（文本）和文件（JSON）
func Init(cfg *Config) {
	if cfg == nil {
		cfg = NewConfigFromEnv()
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	logHandler := newHandler(os.Stdout, cfg.Format, opts)

	if path, ok := cfg.filePath(); ok {
		closeLogFile()
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.New(logHandler).Error("Failed to open log file, using stdout only",
				"file", path,
				"error", err,
			)
		} else {
			logFile = file
			logHandler = slogmulti.Fanout(logHandler, slog.NewJSONHandler(file, opts))
		}
	}

	// 添加服务标识
	defaultLogger = slog.New(logHandler.WithAttrs([]slog.Attr{
		slog.String("service", "oxychat-backend"),
	}))

	debugMode = strings.ToLower(cfg.Level) == "debug"

	slog.SetDefault(defaultLogger)
}

// InitWithWriter 使用自定义 writer 初始化（测试用）
func InitWithWriter(w io.Writer, cfg *Config) {
	if cfg == nil {
		cfg = &Config{Level: "debug", Format: "json"}
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	defaultLogger = slog.New(newHandler(w, cfg.Format, opts).WithAttrs([]slog.Attr{
		slog.String("service", "oxychat-backend"),
	}))
	debugMode = strings.ToLower(cfg.Level) == "debug"
}

// Close 关闭日志文件
func Close() error {
	return closeLogFile()
}

func closeLogFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// GetLogger 获取默认 logger
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		// 未初始化，使用默认配置
		Init(nil)
	}
	return defaultLogger
}

// NewModuleLogger 为特定模块创建 logger
func NewModuleLogger(module, component string) *slog.Logger {
	return GetLogger().With(
		slog.String("module", module),
		slog.String("component", component),
	)
}

// IsDebugMode 检查是否为调试模式
func IsDebugMode() bool {
	return debugMode
}

// parseLevel 解析日志级别
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
