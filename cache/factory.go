package cache

import (
	"fmt"
	"log"

	"github.com/anoixa/image-admin/cache/memory"
	"github.com/anoixa/image-admin/cache/redis"
	"github.com/anoixa/image-admin/config"
)

// NewProvider 根据配置创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "", "memory":
		provider, err := memory.NewMemory(memory.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		log.Println("[Cache] Using memory cache")
		return provider, nil
	case "redis":
		provider, err := redis.NewRedis(redis.Config{
			Address:      cfg.CacheRedisAddr,
			Password:     cfg.CacheRedisPassword,
			DB:           cfg.CacheRedisDB,
			PoolSize:     10,
			MinIdleConns: 2,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.CacheRedisAddr, err)
		}
		log.Printf("[Cache] Using redis cache at %s", cfg.CacheRedisAddr)
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
