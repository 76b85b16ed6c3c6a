package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryService 库存服务
// 库存数量永不为负，消耗到零的物品直接删除行而不是留零库存
type InventoryService struct {
	repo       *repository.InventoryRepository
	recordRepo *repository.InventoryRecordRepository
	db         *gorm.DB
	logger     *zap.Logger
}

func NewInventoryService(repo *repository.InventoryRepository, recordRepo *repository.InventoryRecordRepository, db *gorm.DB, logger *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, recordRepo: recordRepo, db: db, logger: logger}
}

// List 库存列表
func (s *InventoryService) List(ctx context.Context, params repository.InventoryListParams) ([]entity.InventoryItem, int64, error) {
	return s.repo.List(ctx, params)
}

// Get 库存物品详情
func (s *InventoryService) Get(ctx context.Context, id string) (*entity.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("库存物品不存在: %w", ErrNotFound)
	}
	return item, err
}

// ListRecords 库存变动日志列表
func (s *InventoryService) ListRecords(ctx context.Context, page, pageSize int, action string) ([]entity.InventoryRecord, int64, error) {
	return s.recordRepo.List(ctx, page, pageSize, action)
}

// PurgeRecords 清空变动日志
func (s *InventoryService) PurgeRecords(ctx context.Context) (int64, error) {
	return s.recordRepo.PurgeAll(ctx)
}

// ConsumeResult 消耗结果
type ConsumeResult struct {
	ItemID       string  `json:"item_id"`
	ItemName     string  `json:"item_name"`
	PrevQuantity float64 `json:"prev_quantity"`
	NewQuantity  float64 `json:"new_quantity"`
	Deleted      bool    `json:"deleted"`
}

// Consume 消耗库存
// 数量必须为正且不超过现有库存；扣减到零时删除整行
// 变动日志在事务提交后尽力写入，写失败只记日志不回滚扣减
func (s *InventoryService) Consume(ctx context.Context, itemID string, quantity float64, actorID, note string) (*ConsumeResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("消耗数量必须大于0: %w", ErrInvalidQuantity)
	}

	var result ConsumeResult
	var consumed entity.InventoryItem

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item entity.InventoryItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", itemID).
			First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("库存物品不存在: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}

		if quantity > item.Quantity {
			return fmt.Errorf("库存不足: 需要%.2f, 现有%.2f: %w", quantity, item.Quantity, ErrInsufficientStock)
		}

		prev := item.Quantity
		newQty := prev - quantity

		result = ConsumeResult{
			ItemID:       item.ID,
			ItemName:     item.ItemName,
			PrevQuantity: prev,
			NewQuantity:  newQty,
		}
		consumed = item

		if newQty <= 0 {
			result.NewQuantity = 0
			result.Deleted = true
			return tx.Where("id = ?", item.ID).Delete(&entity.InventoryItem{}).Error
		}

		return tx.Model(&entity.InventoryItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"quantity":        newQty,
				"last_updated_by": actorID,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	// 审计日志尽力写入
	record := &entity.InventoryRecord{
		ID:     uuid.New().String()[:32],
		Action: entity.RecordActionConsumed,
		Items: entity.RecordLines{{
			ItemID:       consumed.ID,
			ItemName:     consumed.ItemName,
			Quantity:     quantity,
			Unit:         consumed.Unit,
			PricePerUnit: consumed.PricePerUnit,
			Total:        consumed.PricePerUnit.Mul(decimal.NewFromFloat(quantity)),
			PrevQuantity: result.PrevQuantity,
			NewQuantity:  result.NewQuantity,
		}},
		TotalCost:   consumed.PricePerUnit.Mul(decimal.NewFromFloat(quantity)),
		PerformedBy: actorID,
		Note:        note,
	}
	if err := s.recordRepo.Create(ctx, record); err != nil {
		s.logger.Warn("写入库存消耗日志失败",
			zap.String("item_id", consumed.ID),
			zap.Error(err),
		)
	}

	return &result, nil
}

// Export 导出库存报表
func (s *InventoryService) Export(ctx context.Context) (*excelize.File, string, error) {
	items, err := s.repo.All(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("查询库存失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Inventory"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})

	headers := []string{"物品名称", "数量", "单位", "单价", "总价", "最后修改人"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for row, item := range items {
		total := item.PricePerUnit.Mul(decimal.NewFromFloat(item.Quantity))
		values := []interface{}{
			item.ItemName,
			item.Quantity,
			item.Unit,
			item.PricePerUnit.InexactFloat64(),
			total.InexactFloat64(),
			item.LastUpdatedBy,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 30)
	f.SetColWidth(sheet, "B", "F", 15)

	filename := "inventory_report.xlsx"
	return f, filename, nil
}
