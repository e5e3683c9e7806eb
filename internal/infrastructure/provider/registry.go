package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	domain "github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// Registry 模型 ID 到适配器的映射
// 构造后只读，通过依赖注入传递
type Registry struct {
	mu        sync.RWMutex
	providers map[string]domain.Provider
}

// NewRegistry 创建注册表
func NewRegistry(providers ...domain.Provider) *Registry {
	r := &Registry{providers: make(map[string]domain.Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register 注册适配器，同 ID 覆盖
func (r *Registry) Register(p domain.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ModelID()] = p
}

// Get 按模型 ID 获取适配器
func (r *Registry) Get(modelID string) (domain.Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[modelID]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	return nil, &domain.UnknownModelError{Model: modelID, Available: r.List()}
}

// List 返回已注册的模型 ID（排序）
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear 清空注册表（仅用于测试）
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]domain.Provider)
}

// HealthCheck 并发检查所有适配器
func (r *Registry) HealthCheck(ctx context.Context) map[string]bool {
	ids := r.List()
	results := make(map[string]bool, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range ids {
		p, err := r.Get(id)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(id string, p domain.Provider) {
			defer wg.Done()
			ok := p.HealthCheck(ctx)
			mu.Lock()
			results[id] = ok
			mu.Unlock()
		}(id, p)
	}
	wg.Wait()
	return results
}

// NewDefaultRegistry 按模型目录注册默认适配器
func NewDefaultRegistry(cfg *config.ProvidersConfig, catalog *config.ModelCatalog) (*Registry, error) {
	logger := log.NewModuleLogger("provider", "registry")
	r := NewRegistry()

	for _, m := range catalog.Models {
		p, err := newProviderForEntry(cfg, m)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}

	logger.Info("Registered providers", "models", r.List())
	logUnconfigured(logger, cfg)
	return r, nil
}

func newProviderForEntry(cfg *config.ProvidersConfig, m config.ModelEntry) (domain.Provider, error) {
	switch m.Provider {
	case "openai":
		return NewOpenAIProvider(Options{
			ModelID: m.ID, APIModel: m.APIModel,
			BaseURL: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIAPIKey, Timeout: cfg.Timeout,
		}), nil
	case "anthropic":
		return NewAnthropicProvider(Options{
			ModelID: m.ID, APIModel: m.APIModel,
			BaseURL: cfg.AnthropicBaseURL, APIKey: cfg.AnthropicAPIKey, Timeout: cfg.Timeout,
		}), nil
	case "xai":
		return NewXAIProvider(Options{
			ModelID: m.ID, APIModel: m.APIModel,
			BaseURL: cfg.XAIBaseURL, APIKey: cfg.XAIAPIKey, Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %s", m.Provider, m.ID)
	}
}

func logUnconfigured(logger *slog.Logger, cfg *config.ProvidersConfig) {
	keys := map[string]string{
		"OPENAI_API_KEY":    cfg.OpenAIAPIKey,
		"ANTHROPIC_API_KEY": cfg.AnthropicAPIKey,
		"XAI_API_KEY":       cfg.XAIAPIKey,
	}
	for name, value := range keys {
		if value == "" {
			logger.Warn("Provider credential not configured", "env", name)
		}
	}
}
