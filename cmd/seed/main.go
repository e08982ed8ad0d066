package main

import (
	"log"
	"time"

	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 演示商品（带成本与分润池配置）
	products := []models.Product{
		{
			Slug:                 "wireless-earphones",
			Name:                 "Wireless Bluetooth Earphones",
			PriceAmount:          money(99.99),
			ProductCost:          money(38.00),
			PackagingCost:        money(2.50),
			OtherCharges:         money(1.50),
			AffiliatePoolPercent: money(55),
			IsActive:             true,
		},
		{
			Slug:                 "smart-watch",
			Name:                 "Smart Watch",
			PriceAmount:          money(199.99),
			ProductCost:          money(85.00),
			PackagingCost:        money(4.00),
			OtherCharges:         money(3.00),
			AffiliatePoolPercent: money(60),
			IsActive:             true,
		},
		{
			Slug:        "power-bank",
			Name:        "Portable Power Bank",
			PriceAmount: money(49.99),
			ProductCost: money(18.00),
			// 未配置分润池比例，走默认值
			IsActive: true,
		},
	}
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", product.Slug)
			}
		} else {
			stdLog.Printf("Product already exists: %s", product.Slug)
		}
	}

	// 演示推广树：root 直推 alice(left)/bob(right)
	now := time.Now()
	root := seedAffiliate(stdLog, models.Affiliate{
		Name:        "Demo Root",
		Phone:       "9900000001",
		Email:       "root@example.com",
		CouponCode:  "DEMOROOT",
		Status:      constants.AffiliateStatusApproved,
		IsActive:    true,
		IsPaid:      true,
		CurrentTier: constants.TierStarter,
		PaidAt:      &now,
		ApprovedAt:  &now,
	})
	if root != nil {
		seedAffiliate(stdLog, models.Affiliate{
			Name:        "Demo Alice",
			Phone:       "9900000002",
			Email:       "alice@example.com",
			CouponCode:  "DEMOALICE",
			ReferrerID:  &root.ID,
			ParentID:    &root.ID,
			Position:    constants.TreePositionLeft,
			Status:      constants.AffiliateStatusApproved,
			IsActive:    true,
			CurrentTier: constants.TierStarter,
			ApprovedAt:  &now,
		})
		seedAffiliate(stdLog, models.Affiliate{
			Name:        "Demo Bob",
			Phone:       "9900000003",
			Email:       "bob@example.com",
			CouponCode:  "DEMOBOB",
			ReferrerID:  &root.ID,
			ParentID:    &root.ID,
			Position:    constants.TreePositionRight,
			Status:      constants.AffiliateStatusApproved,
			IsActive:    true,
			CurrentTier: constants.TierStarter,
			ApprovedAt:  &now,
		})
	}

	// 演示订单（待确认支付，使用 alice 的优惠码）
	var product models.Product
	if err := models.DB.Where("slug = ?", "wireless-earphones").First(&product).Error; err == nil {
		var existing models.Order
		if err := models.DB.Where("order_no = ?", "DEMO-ORD-0001").First(&existing).Error; err != nil {
			order := models.Order{
				OrderNo:     "DEMO-ORD-0001",
				CouponCode:  "DEMOALICE",
				Status:      constants.OrderStatusPendingVerification,
				TotalAmount: money(199.98),
				Items: []models.OrderItem{
					{
						ProductID:  product.ID,
						Quantity:   2,
						UnitPrice:  product.PriceAmount,
						TotalPrice: money(199.98),
					},
				},
			}
			if err := models.DB.Create(&order).Error; err != nil {
				stdLog.Printf("Failed to create demo order: %v", err)
			} else {
				stdLog.Printf("Created demo order: %s", order.OrderNo)
			}
		} else {
			stdLog.Printf("Demo order already exists: %s", existing.OrderNo)
		}
	}

	stdLog.Println("Seed completed")
}

func money(value float64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromFloat(value))
}

func seedAffiliate(stdLog *log.Logger, row models.Affiliate) *models.Affiliate {
	var existing models.Affiliate
	if err := models.DB.Where("phone = ?", row.Phone).First(&existing).Error; err == nil {
		stdLog.Printf("Affiliate already exists: %s", existing.Name)
		return &existing
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("demo123456"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Printf("Failed to hash demo password: %v", err)
		return nil
	}
	row.PasswordHash = string(hash)
	if err := models.DB.Create(&row).Error; err != nil {
		stdLog.Printf("Failed to create affiliate %s: %v", row.Name, err)
		return nil
	}
	stdLog.Printf("Created affiliate: %s (%s)", row.Name, row.CouponCode)
	return &row
}
