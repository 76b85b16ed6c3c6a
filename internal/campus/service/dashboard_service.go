package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dashboardCacheKey = "campus:dashboard:stats"
	dashboardCacheTTL = 60 * time.Second
)

// DashboardService 看板统计服务，结果走 Redis 短缓存
type DashboardService struct {
	repos  *repository.Repositories
	db     *gorm.DB
	rdb    *redis.Client
	logger *zap.Logger
}

func NewDashboardService(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *DashboardService {
	return &DashboardService{repos: repos, db: db, rdb: rdb, logger: logger}
}

// BudgetStat 单部门预算统计
type BudgetStat struct {
	Department string          `json:"department"`
	Allocated  decimal.Decimal `json:"allocated"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// DashboardStats 看板统计
type DashboardStats struct {
	Budgets            []BudgetStat    `json:"budgets"`
	InventoryItemCount int64           `json:"inventory_item_count"`
	InventoryValue     decimal.Decimal `json:"inventory_value"`
	PendingProcurement int64           `json:"pending_procurements"`
	AcceptedNotIngest  int64           `json:"accepted_awaiting_items"`
	RecordCount        int64           `json:"inventory_record_count"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// Stats 汇总看板统计，缓存60秒
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, dashboardCacheKey).Bytes(); err == nil {
			var stats DashboardStats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.rdb.Set(ctx, dashboardCacheKey, data, dashboardCacheTTL).Err(); err != nil {
				s.logger.Debug("写入看板缓存失败", zap.Error(err))
			}
		}
	}

	return stats, nil
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		InventoryValue: decimal.Zero,
		GeneratedAt:    time.Now(),
	}

	budgets, err := s.repos.Budget.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		stats.Budgets = append(stats.Budgets, BudgetStat{
			Department: b.Department,
			Allocated:  b.AllocatedAmount,
			Spent:      b.SpentAmount,
			Remaining:  b.Remaining(),
		})
	}

	items, err := s.repos.Inventory.All(ctx)
	if err != nil {
		return nil, err
	}
	stats.InventoryItemCount = int64(len(items))
	for _, item := range items {
		stats.InventoryValue = stats.InventoryValue.Add(
			item.PricePerUnit.Mul(decimal.NewFromFloat(item.Quantity)))
	}

	if stats.PendingProcurement, err = s.repos.Procurement.CountByStatus(ctx, entity.ProcurementStatusPending); err != nil {
		return nil, err
	}

	// accepted 且未入库的采购单
	if err := s.db.WithContext(ctx).Model(&entity.Procurement{}).
		Where("status = ? AND items_added = ?", entity.ProcurementStatusAccepted, false).
		Count(&stats.AcceptedNotIngest).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&entity.InventoryRecord{}).
		Count(&stats.RecordCount).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
