package tokenizer

import (
	"sync"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器，避免运行时下载 BPE 文件
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// EncodingName 统一使用 cl100k_base 编码
const EncodingName = "cl100k_base"

// Counter 基于 tiktoken 的 Token 计数器
// 编码加载失败时回落到 4 字符/token 的估算
type Counter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	counterInstance *Counter
	counterOnce     sync.Once
)

// NewCounter 获取 Counter 单例
func NewCounter() *Counter {
	counterOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(EncodingName)
		if err != nil {
			log.NewModuleLogger("tokenizer", "tiktoken").Warn("Failed to load tiktoken encoding, using estimate",
				"encoding", EncodingName,
				"error", err,
			)
		}
		counterInstance = &Counter{encoding: enc}
	})
	return counterInstance
}

// CountTokens 计算文本的 Token 数量
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c.encoding == nil {
		return len(text) / 4
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// Method 返回计数方式
func (c *Counter) Method() string {
	if c.encoding == nil {
		return "estimate"
	}
	return "tiktoken"
}
