package service

import (
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/bitfantasy/campus/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Budget      *BudgetService
	Inventory   *InventoryService
	Procurement *ProcurementService
	Ingestion   *IngestionService
	Notice      *NoticeService
	Dashboard   *DashboardService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	inventorySvc := NewInventoryService(repos.Inventory, repos.Record, db, logger)

	return &Services{
		Budget:      NewBudgetService(repos.Budget),
		Inventory:   inventorySvc,
		Procurement: NewProcurementService(repos.Procurement, db, cfg.Upload.Dir, logger),
		Ingestion:   NewIngestionService(repos.Procurement, repos.Record, db, cfg.Procurement.Department, logger),
		Notice:      NewNoticeService(repos.Notice, cfg.Upload.Dir, logger),
		Dashboard:   NewDashboardService(repos, db, rdb, logger),
	}
}
