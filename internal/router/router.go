package router

import (
	"fmt"
	"strings"

	"github.com/alimini-next/internal/cache"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/constants"
	miniapphandlers "github.com/alimini-next/internal/http/handlers/miniapp"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	miniappHandler := miniapphandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	authRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:auth_code", redisPrefix),
		WindowSeconds: cfg.Security.AuthRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.AuthRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.AuthRateLimit.BlockSeconds,
		Message:       "授权请求过于频繁",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		miniapp := apiV1.Group("/miniapp")
		{
			// 授权码上报（无需会话，同应用+IP 限流）
			miniapp.POST("/auth/code",
				RateLimitMiddleware(redisClient, authRule, KeyByIPAndJSONField("app_code")),
				miniappHandler.UploadAuthCode,
			)

			// 需要会话的接口
			authorized := miniapp.Group("")
			authorized.Use(SessionAuthMiddleware(c.SessionService))
			{
				authorized.POST("/phone", miniappHandler.UploadPhoneNumber)
				authorized.POST("/form-ids", miniappHandler.SaveFormID)
				authorized.GET("/me/phones", miniappHandler.ListMyPhones)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
