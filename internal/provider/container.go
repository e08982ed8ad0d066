package provider

import (
	"github.com/affiliate-next/internal/cache"
	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/queue"
	"github.com/affiliate-next/internal/repository"
	"github.com/affiliate-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo       repository.AdminRepository
	AffiliateRepo   repository.AffiliateRepository
	TransactionRepo repository.TransactionRepository
	PayoutRepo      repository.PayoutRepository
	OrderRepo       repository.OrderRepository
	ProductRepo     repository.ProductRepository
	SettingRepo     repository.SettingRepository

	// Services
	AuthService       *service.AuthService
	SettingService    *service.SettingService
	AffiliateService  *service.AffiliateService
	CommissionService *service.CommissionService
	ReconcileService  *service.ReconcileService
	PayoutService     *service.PayoutService
	OrderService      *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.TransactionRepo = repository.NewTransactionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.ReconcileService = service.NewReconcileService(c.AffiliateRepo, c.TransactionRepo, c.OrderRepo, c.PayoutRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.TransactionRepo, c.PayoutRepo, c.SettingService, c.ReconcileService, cache.NewPlacementLock())
	c.CommissionService = service.NewCommissionService(c.AffiliateRepo, c.TransactionRepo, c.OrderRepo, c.ProductRepo, c.SettingService)
	c.PayoutService = service.NewPayoutService(c.AffiliateRepo, c.PayoutRepo, c.SettingService)
	// 队列未启用时不注入投递器，订单副作用走同步兜底
	var enqueuer service.TaskEnqueuer
	if c.QueueClient.Enabled() {
		enqueuer = c.QueueClient
	}
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CommissionService, enqueuer)
}
