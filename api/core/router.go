package core

import (
	"net/http"

	"github.com/anoixa/image-admin/api"
	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/api/handler/admin"
	"github.com/anoixa/image-admin/api/middleware"
	"github.com/anoixa/image-admin/config"
	_ "github.com/anoixa/image-admin/docs"
	adminSite "github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/auth"
	"github.com/anoixa/image-admin/internal/auth/password"
	"github.com/anoixa/image-admin/internal/preview"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// ServerVersion 版本信息
type ServerVersion struct {
	Version    string
	CommitHash string
}

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Site            *adminSite.Site
	PasswordPolicy  *password.Policy
	PreviewService  *preview.Service
	LoginService    *auth.LoginService
	Health          HealthChecker
	AuthRateLimiter *middleware.IPRateLimiter
	APIRateLimiter  *middleware.IPRateLimiter
	// PreviewLimiter 缩略图解码的并发上限，可为空
	PreviewLimiter *middleware.ConcurrencyLimiter
	ServerVersion  ServerVersion
	EnableSwagger  bool
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	registerBasicRoutes(router, deps)
	registerAPIRoutes(router, deps)
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	healthHandler := NewHealthHandler(deps.Health)
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": deps.ServerVersion.Version,
			"commit":  deps.ServerVersion.CommitHash,
		})
	})

	router.GET("/metrics", func(context *gin.Context) {
		context.JSON(http.StatusOK, middleware.GetMetrics())
	})

	if deps.EnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// registerAPIRoutes 注册 API 路由
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies) {
	loginHandler := api.NewLoginHandlerWithService(deps.LoginService)
	adminHandler := admin.NewHandler(deps.Site, deps.PasswordPolicy, deps.PreviewService)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) {
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	apiGroup.Use(middleware.Locale())
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/login", limit(deps.AuthRateLimiter), loginHandler.LoginHandlerFunc) // POST /api/auth/login
			authGroup.GET("/me", middleware.JWTAuth(deps.LoginService), loginHandler.MeHandlerFunc)
		}

		v1 := apiGroup.Group("/v1")
		v1.Use(limit(deps.APIRateLimiter))
		v1.Use(middleware.JWTAuth(deps.LoginService))
		{
			adminGroup := v1.Group("/admin")
			{
				adminGroup.GET("", adminHandler.Index)                             // GET /api/v1/admin
				adminGroup.GET("/:model", adminHandler.Changelist)                 // GET /api/v1/admin/{model}
				adminGroup.POST("/:model", adminHandler.Create)                    // POST /api/v1/admin/{model}
				adminGroup.GET("/:model/add", adminHandler.AddView)                // GET /api/v1/admin/{model}/add
				adminGroup.POST("/:model/actions/:action", adminHandler.RunAction) // POST /api/v1/admin/{model}/actions/{action}
				adminGroup.GET("/:model/:id", adminHandler.Detail)                 // GET /api/v1/admin/{model}/{id}
				adminGroup.PUT("/:model/:id", adminHandler.Update)                 // PUT /api/v1/admin/{model}/{id}
				adminGroup.DELETE("/:model/:id", adminHandler.Delete)              // DELETE /api/v1/admin/{model}/{id}

				// password 仅对 user 有效，preview 仅对 image 有效
				adminGroup.GET("/:model/:id/password", adminHandler.PasswordForm)                              // GET /api/v1/admin/user/{id}/password
				adminGroup.POST("/:model/:id/password", adminHandler.SetPassword)                              // POST /api/v1/admin/user/{id}/password
				adminGroup.GET("/:model/:id/preview", previewLimit(deps.PreviewLimiter), adminHandler.Preview) // GET /api/v1/admin/image/{id}/preview
			}
		}
	}
}

// limit 限流器为空时不限流
func limit(rl *middleware.IPRateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}

// previewLimit 缩略图解码排队等待，超时返回 503
func previewLimit(cl *middleware.ConcurrencyLimiter) gin.HandlerFunc {
	if cl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return cl.MiddlewareWithBlock(previewWait)
}

// defaultDependencies 由配置补齐限流器
func defaultDependencies(cfg *config.Config, deps *RouterDependencies) func() {
	deps.AuthRateLimiter = middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	deps.APIRateLimiter = middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	return func() {
		deps.AuthRateLimiter.StopCleanup()
		deps.APIRateLimiter.StopCleanup()
	}
}
