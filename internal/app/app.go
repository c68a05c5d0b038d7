package app

import (
	"context"
	"fmt"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/repo/accounts"
	"github.com/anoixa/image-admin/database/repo/images"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/auth"
	"github.com/anoixa/image-admin/internal/auth/password"
	"github.com/anoixa/image-admin/internal/coreadmin"
	"github.com/anoixa/image-admin/internal/maintenance"
	"github.com/anoixa/image-admin/internal/preview"
	"github.com/anoixa/image-admin/storage"
	"github.com/anoixa/image-admin/utils"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	cacheProvider   cache.Provider
	cacheHelper     *cache.Helper
	storage         storage.Provider

	policy  *password.Policy
	jwt     *auth.JWTService
	login   *auth.LoginService
	site    *admin.Site
	preview *preview.Service

	AccountsRepo *accounts.Repository
	ImagesRepo   *images.Repository
	LabelsRepo   *images.LabelRepository
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
		policy: password.NewPolicy(cfg),
	}
}

// Init 初始化数据库与全部服务
func (c *Container) Init() error {
	if err := c.InitDatabase(); err != nil {
		return err
	}
	return c.InitServices()
}

// InitDatabase 只初始化数据库与仓库，供命令行工具使用
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing DI container...")

	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory

	provider := factory.GetProvider()
	c.AccountsRepo = accounts.NewRepository(provider)
	c.ImagesRepo = images.NewRepository(provider)
	c.LabelsRepo = images.NewLabelRepository(provider)
	utils.LogIfDev("Repositories initialized")
	return nil
}

// InitServices 初始化缓存、存储、认证与后台站点
func (c *Container) InitServices() error {
	if err := c.InitCache(); err != nil {
		return err
	}
	if err := c.InitStorage(); err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	c.jwt = jwtService
	c.login = auth.NewLoginService(c.AccountsRepo, jwtService)

	provider := c.databaseFactory.GetProvider()
	c.site = admin.NewSite(provider, c.AccountsRepo, admin.SiteOptions{
		ListPerPage:    c.config.AdminListPerPage,
		ListMaxShowAll: c.config.AdminListMaxShowAll,
	})
	err = coreadmin.Register(c.site, coreadmin.Deps{
		DB:            provider,
		Policy:        c.policy,
		Cache:         c.cacheHelper,
		Storage:       c.storage,
		PublicBaseURL: c.config.StoragePublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to register admin models: %w", err)
	}

	c.preview = preview.NewService(c.ImagesRepo, c.storage, c.cacheHelper, c.config.StoragePublicBaseURL, 0)
	utils.LogIfDev("DI container initialized successfully")
	return nil
}

// InitCache 初始化缓存
func (c *Container) InitCache() error {
	if c.cacheProvider != nil {
		return nil
	}
	provider, err := cache.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cacheProvider = provider
	c.cacheHelper = cache.NewHelper(provider, cache.HelperConfig{
		FilterChoicesExpiration: c.config.CacheFilterTTL,
		PreviewExpiration:       c.config.CachePreviewTTL,
	})
	utils.LogIfDevf("Cache initialized: %s", provider.Name())
	return nil
}

// InitStorage 初始化存储
func (c *Container) InitStorage() error {
	if c.storage != nil {
		return nil
	}
	provider, err := storage.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = provider
	utils.LogIfDevf("Storage initialized: %s", provider.Name())
	return nil
}

// Purger 软删除数据清理器，需先初始化存储与缓存
func (c *Container) Purger() *maintenance.Purger {
	return maintenance.NewPurger(c.GetDatabaseProvider(), c.storage, c.cacheHelper, c.config.StoragePublicBaseURL)
}

// GetDatabaseProvider 获取数据库提供者
func (c *Container) GetDatabaseProvider() database.Provider {
	if c.databaseFactory == nil {
		return nil
	}
	return c.databaseFactory.GetProvider()
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

func (c *Container) GetSite() *admin.Site                { return c.site }
func (c *Container) GetLoginService() *auth.LoginService { return c.login }
func (c *Container) GetPreviewService() *preview.Service { return c.preview }
func (c *Container) GetPasswordPolicy() *password.Policy { return c.policy }
func (c *Container) GetCacheHelper() *cache.Helper       { return c.cacheHelper }

// Health 检查数据库、缓存与存储
func (c *Container) Health(ctx context.Context) map[string]string {
	status := map[string]string{}
	check := func(name string, err error) {
		if err != nil {
			status[name] = err.Error()
			return
		}
		status[name] = "ok"
	}

	if c.databaseFactory != nil {
		check("database", c.databaseFactory.Ping())
	}
	if c.cacheProvider != nil {
		_, err := c.cacheProvider.Exists(ctx, "health")
		check("cache", err)
	}
	if c.storage != nil {
		check("storage", c.storage.Health(ctx))
	}
	return status
}

// Close 关闭所有服务
func (c *Container) Close() error {
	utils.LogIfDev("Closing DI container...")

	if c.cacheProvider != nil {
		if err := c.cacheProvider.Close(); err != nil {
			utils.LogIfDevf("Error closing cache provider: %v", err)
		}
	}
	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			utils.LogIfDevf("Error closing database factory: %v", err)
		}
	}

	utils.LogIfDev("DI container closed")
	return nil
}
