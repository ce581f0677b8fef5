package router

import (
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/config"
	adminhandlers "github.com/affiliate-next/internal/http/handlers/admin"
	publichandlers "github.com/affiliate-next/internal/http/handlers/public"
	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "aff"
	}
	trackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:track", redisPrefix),
		WindowSeconds: cfg.Security.TrackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.TrackRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(TracingMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(ctx *gin.Context) {
		response.Success(ctx, gin.H{"ok": true})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/commissions/calculate", publicHandler.CalculateCommission)
		apiV1.POST("/commissions/track",
			RateLimitMiddleware(c.Cache.Client(), trackRule, KeyByIPAndJSONField("affiliate_id")),
			publicHandler.TrackCommission,
		)
		apiV1.GET("/affiliates/:id/commissions", publicHandler.GetCommissionHistory)
		apiV1.GET("/affiliates/:id/commission-stats", publicHandler.GetCommissionStats)
		apiV1.GET("/commission-tiers", publicHandler.GetCommissionTiers)

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(c.AdminTokenService))
		admin.Use(AdminAuthzMiddleware(c.AuthzService))
		{
			admin.GET("/commission-setting", adminHandler.GetCommissionSetting)
			admin.PUT("/commission-tiers", adminHandler.UpdateCommissionTiers)

			admin.POST("/affiliates", adminHandler.CreateAffiliate)
			admin.GET("/affiliates", adminHandler.ListAffiliates)
			admin.GET("/affiliates/:id", adminHandler.GetAffiliate)
			admin.PUT("/affiliates/:id/tier", adminHandler.UpdateAffiliateTier)

			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/operators/:operator", adminHandler.GetOperatorAuthz)
			admin.PUT("/authz/operators/:operator/roles", adminHandler.SetOperatorRoles)
		}
	}

	return r
}
