package core

import (
	"net/http"
	"runtime"
	"time"

	"github.com/anoixa/image-admin/api/middleware"
	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	// 后台接口只接收 JSON，1MB 足够
	requestBodyLimit = 1 << 20
	maxConcurrency   = 100
	previewWait      = 5 * time.Second
)

// setupRouter 创建 gin 引擎
func setupRouter(container *app.Container) (*gin.Engine, func()) {
	cfg := container.GetConfig()
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept-Language", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	_ = router.SetTrustedProxies(nil)

	concurrencyLimiter := middleware.NewConcurrencyLimiter(maxConcurrency)
	router.Use(concurrencyLimiter.Middleware())
	router.Use(middleware.MaxBodySize(requestBodyLimit))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	deps := &RouterDependencies{
		Site:           container.GetSite(),
		PasswordPolicy: container.GetPasswordPolicy(),
		PreviewService: container.GetPreviewService(),
		LoginService:   container.GetLoginService(),
		Health:         container,
		PreviewLimiter: middleware.NewConcurrencyLimiter(int64(runtime.GOMAXPROCS(0))),
		ServerVersion:  ServerVersion{Version: config.Version, CommitHash: config.CommitHash},
		EnableSwagger:  !config.IsProduction(),
	}
	cleanup := defaultDependencies(cfg, deps)
	RegisterRoutes(router, deps)

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(container *app.Container) (*http.Server, func()) {
	cfg := container.GetConfig()
	router, clean := setupRouter(container)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
