package router

import (
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/cache"
	"github.com/affiliate-next/internal/config"
	adminhandlers "github.com/affiliate-next/internal/http/handlers/admin"
	publichandlers "github.com/affiliate-next/internal/http/handlers/public"
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

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "afn"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口：入盟申请与提现申请
		affiliate := apiV1.Group("/affiliates")
		{
			affiliate.POST("/apply", publicHandler.ApplyAffiliate)
			affiliate.POST("/payouts", publicHandler.ApplyPayout)
		}

		// 外围订单系统事件回调
		orders := apiV1.Group("/orders")
		{
			orders.POST("", publicHandler.IngestOrder)
			orders.POST("/:order_no/status", publicHandler.UpdateOrderStatus)
		}

		// 管理端登录
		apiV1.POST("/admin/login",
			RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")),
			adminHandler.AdminLogin,
		)

		// 管理端接口（需鉴权）
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
		{
			admin.GET("/me", adminHandler.GetAdminProfile)

			admin.GET("/affiliates", adminHandler.ListAffiliates)
			admin.GET("/affiliates/:id", adminHandler.GetAffiliate)
			admin.POST("/affiliates/:id/approve", adminHandler.ApproveAffiliate)
			admin.POST("/affiliates/:id/reject", adminHandler.RejectAffiliate)
			admin.POST("/affiliates/:id/upgrade", adminHandler.UpgradeAffiliate)
			admin.POST("/affiliates/:id/reconcile", adminHandler.ReconcileAffiliate)
			admin.DELETE("/affiliates/:id", adminHandler.RemoveAffiliate)
			admin.POST("/reconcile", adminHandler.ReconcileAllAffiliates)

			admin.GET("/transactions", adminHandler.ListAffiliateTransactions)

			admin.GET("/payouts", adminHandler.ListPayouts)
			admin.GET("/payouts/:id", adminHandler.GetPayout)
			admin.POST("/payouts/:id/review", adminHandler.ReviewPayout)

			admin.GET("/orders", adminHandler.ListOrders)
			admin.GET("/orders/:order_no", adminHandler.GetOrder)

			admin.GET("/settings/affiliate", adminHandler.GetAffiliateSetting)
			admin.PUT("/settings/affiliate", adminHandler.UpdateAffiliateSetting)
		}
	}

	return r
}
