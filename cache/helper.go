package cache

import (
	"context"
	"math/rand"
	"time"
)

// addJitter 添加随机抖动（+10%），防止缓存雪崩
func addJitter(duration time.Duration) time.Duration {
	if duration < 10 {
		return duration
	}
	return duration + time.Duration(rand.Int63n(int64(duration)/10))
}

const (
	// DefaultFilterChoicesExpiration 过滤器选项缓存过期时间
	DefaultFilterChoicesExpiration = 5 * time.Minute

	// DefaultPreviewExpiration 缩略图缓存过期时间
	DefaultPreviewExpiration = 1 * time.Hour
)

// HelperConfig 缓存辅助配置
type HelperConfig struct {
	FilterChoicesExpiration time.Duration
	PreviewExpiration       time.Duration
}

// DefaultHelperConfig 默认配置
func DefaultHelperConfig() HelperConfig {
	return HelperConfig{
		FilterChoicesExpiration: DefaultFilterChoicesExpiration,
		PreviewExpiration:       DefaultPreviewExpiration,
	}
}

// Helper 业务层缓存辅助
type Helper struct {
	provider Provider
	config   HelperConfig
}

// NewHelper 创建缓存辅助，零值配置项使用默认值
func NewHelper(provider Provider, cfg ...HelperConfig) *Helper {
	config := DefaultHelperConfig()
	if len(cfg) > 0 {
		if cfg[0].FilterChoicesExpiration > 0 {
			config.FilterChoicesExpiration = cfg[0].FilterChoicesExpiration
		}
		if cfg[0].PreviewExpiration > 0 {
			config.PreviewExpiration = cfg[0].PreviewExpiration
		}
	}
	return &Helper{provider: provider, config: config}
}

// Provider 底层缓存
func (h *Helper) Provider() Provider {
	return h.provider
}

// CacheFilterChoices 缓存过滤器选项
func (h *Helper) CacheFilterChoices(ctx context.Context, model, filter string, choices interface{}) error {
	return h.provider.Set(ctx, FilterChoices.Build(model, filter), choices, addJitter(h.config.FilterChoicesExpiration))
}

// GetCachedFilterChoices 获取缓存的过滤器选项
func (h *Helper) GetCachedFilterChoices(ctx context.Context, model, filter string, dest interface{}) error {
	return h.provider.Get(ctx, FilterChoices.Build(model, filter), dest)
}

// DeleteCachedFilterChoices 删除缓存的过滤器选项
func (h *Helper) DeleteCachedFilterChoices(ctx context.Context, model, filter string) error {
	return h.provider.Delete(ctx, FilterChoices.Build(model, filter))
}

// CachePreview 缓存缩略图数据
func (h *Helper) CachePreview(ctx context.Context, imageID uint, data []byte) error {
	return h.provider.Set(ctx, Preview.BuildID(imageID), data, addJitter(h.config.PreviewExpiration))
}

// GetCachedPreview 获取缓存的缩略图
func (h *Helper) GetCachedPreview(ctx context.Context, imageID uint) ([]byte, error) {
	var data []byte
	if err := h.provider.Get(ctx, Preview.BuildID(imageID), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteCachedPreview 删除缓存的缩略图
func (h *Helper) DeleteCachedPreview(ctx context.Context, imageID uint) error {
	return h.provider.Delete(ctx, Preview.BuildID(imageID))
}

// Clear 清空全部缓存
func (h *Helper) Clear(ctx context.Context) error {
	return h.provider.Clear(ctx)
}
