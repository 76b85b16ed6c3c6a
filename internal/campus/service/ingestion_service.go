package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngestionService 采购入库服务
//
// 一次入库跨四个存储：校验预算余额、按物品名合并库存、给预算追加交易、
// 把采购单标记为已入库。预算校验到预算扣减整个放在一个数据库事务里，
// 预算行用 FOR UPDATE 锁住，同部门并发入库串行执行，不会出现两次并发
// 都通过余额检查导致超支。审计日志在事务提交后尽力写入。
type IngestionService struct {
	procRepo   *repository.ProcurementRepository
	recordRepo *repository.InventoryRecordRepository
	db         *gorm.DB
	department string
	logger     *zap.Logger
}

func NewIngestionService(procRepo *repository.ProcurementRepository, recordRepo *repository.InventoryRecordRepository, db *gorm.DB, department string, logger *zap.Logger) *IngestionService {
	return &IngestionService{
		procRepo:   procRepo,
		recordRepo: recordRepo,
		db:         db,
		department: department,
		logger:     logger,
	}
}

// Department 入库扣减预算的固定部门
func (s *IngestionService) Department() string {
	return s.department
}

// LineInput 入库行项
// PricePerUnit 用指针区分"没填"和"填了0"
type LineInput struct {
	ItemName     string           `json:"item_name"`
	Quantity     float64          `json:"quantity"`
	Unit         string           `json:"unit"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit"`
}

// IngestResult 入库结果
type IngestResult struct {
	ProcurementID string             `json:"procurement_id"`
	Applied       int                `json:"applied"`
	Skipped       int                `json:"skipped"`
	TotalCost     decimal.Decimal    `json:"total_cost"`
	Remaining     decimal.Decimal    `json:"remaining"`
	Items         entity.RecordLines `json:"items"`
}

type validLine struct {
	name     string
	quantity float64
	unit     string
	price    decimal.Decimal
	total    decimal.Decimal
}

// Ingest 把已审批采购单的行项转成库存和预算开销
//
// 前置校验（无副作用）：采购单存在、状态为 accepted、操作人是上传人、
// 尚未入库、目标部门有预算。缺名称/数量/单价的行跳过不报错，只记日志；
// 全部行都无效时整单拒绝，不烧掉采购单仅有的一次入库机会。
func (s *IngestionService) Ingest(ctx context.Context, procurementID, actorID string, lines []LineInput) (*IngestResult, error) {
	proc, err := s.procRepo.FindByID(ctx, procurementID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("采购单不存在: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if proc.Status != entity.ProcurementStatusAccepted {
		return nil, fmt.Errorf("采购单状态为 %s, 未通过审批不能入库: %w", proc.Status, ErrInvalidState)
	}
	if proc.UploaderID != actorID {
		return nil, fmt.Errorf("只有采购单上传人可以入库: %w", ErrForbidden)
	}
	if proc.ItemsAdded {
		return nil, fmt.Errorf("该采购单已经入库过: %w", ErrAlreadyProcessed)
	}

	valid, skipped := s.partitionLines(procurementID, lines)
	if len(valid) == 0 {
		return nil, fmt.Errorf("没有有效的入库行项: %w", ErrValidation)
	}

	totalCost := decimal.Zero
	for _, l := range valid {
		totalCost = totalCost.Add(l.total)
	}

	// 审计日志ID提前生成，预算交易里要引用它
	recordID := uuid.New().String()[:32]

	var recordLines entity.RecordLines
	var remaining decimal.Decimal

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁部门预算行，同部门入库串行化
		var budget entity.Budget
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("department = ?", s.department).
			First(&budget).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("部门 %s 没有预算: %w", s.department, ErrNotFound)
		}
		if err != nil {
			return err
		}

		// 预算校验必须先于任何库存写入
		remaining = budget.Remaining()
		if totalCost.GreaterThan(remaining) {
			return fmt.Errorf("本次采购 %s 超出剩余预算 %s: %w",
				totalCost.StringFixed(2), remaining.StringFixed(2), ErrBudgetExceeded)
		}

		// 条件更新兜底同一张采购单的并发入库
		res := tx.Model(&entity.Procurement{}).
			Where("id = ? AND status = ? AND items_added = ?",
				proc.ID, entity.ProcurementStatusAccepted, false).
			Update("items_added", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("该采购单已经入库过: %w", ErrAlreadyProcessed)
		}

		// 按归一化物品名合并库存
		for _, l := range valid {
			nameKey := entity.NormalizeItemName(l.name)

			var item entity.InventoryItem
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("name_key = ?", nameKey).
				First(&item).Error

			var prev, newQty float64
			var itemID string

			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				itemID = uuid.New().String()[:32]
				prev = 0
				newQty = l.quantity
				newItem := entity.InventoryItem{
					ID:            itemID,
					ItemName:      strings.TrimSpace(l.name),
					NameKey:       nameKey,
					Quantity:      l.quantity,
					Unit:          l.unit,
					PricePerUnit:  l.price,
					LastUpdatedBy: actorID,
				}
				if err := tx.Create(&newItem).Error; err != nil {
					return fmt.Errorf("创建库存物品失败: %w", err)
				}
			case err != nil:
				return err
			default:
				itemID = item.ID
				prev = item.Quantity
				newQty = prev + l.quantity
				// 单价覆盖为最新值
				if err := tx.Model(&entity.InventoryItem{}).
					Where("id = ?", item.ID).
					Updates(map[string]interface{}{
						"quantity":        newQty,
						"price_per_unit":  l.price,
						"unit":            l.unit,
						"last_updated_by": actorID,
					}).Error; err != nil {
					return fmt.Errorf("更新库存物品失败: %w", err)
				}
			}

			recordLines = append(recordLines, entity.RecordLine{
				ItemID:       itemID,
				ItemName:     strings.TrimSpace(l.name),
				Quantity:     l.quantity,
				Unit:         l.unit,
				PricePerUnit: l.price,
				Total:        l.total,
				PrevQuantity: prev,
				NewQuantity:  newQty,
			})
		}

		// 追加预算交易并累加开销
		txLines := make(entity.TransactionLines, 0, len(valid))
		for _, l := range valid {
			txLines = append(txLines, entity.TransactionLine{
				ItemName:     strings.TrimSpace(l.name),
				Quantity:     l.quantity,
				Unit:         l.unit,
				PricePerUnit: l.price,
				Total:        l.total,
			})
		}
		purchase := entity.BudgetTransaction{
			ID:            uuid.New().String()[:32],
			BudgetID:      budget.ID,
			ProcurementID: proc.ID,
			InventoryRef:  recordID,
			Lines:         txLines,
			TotalCost:     totalCost,
			AddedBy:       actorID,
			CreatedAt:     time.Now(),
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return fmt.Errorf("写入预算交易失败: %w", err)
		}

		newSpent := budget.SpentAmount.Add(totalCost)
		if err := tx.Model(&entity.Budget{}).
			Where("id = ?", budget.ID).
			Update("spent_amount", newSpent).Error; err != nil {
			return fmt.Errorf("更新预算开销失败: %w", err)
		}
		remaining = budget.AllocatedAmount.Sub(newSpent)

		return nil
	})
	if err != nil {
		return nil, err
	}

	// 审计日志尽力写入，失败不回滚已提交的入库
	record := &entity.InventoryRecord{
		ID:          recordID,
		Action:      entity.RecordActionAdded,
		Items:       recordLines,
		TotalCost:   totalCost,
		PerformedBy: actorID,
		Note:        fmt.Sprintf("采购单 %s 入库", proc.ID),
	}
	if err := s.recordRepo.Create(ctx, record); err != nil {
		s.logger.Error("写入入库审计日志失败",
			zap.String("procurement_id", proc.ID),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
	}

	return &IngestResult{
		ProcurementID: proc.ID,
		Applied:       len(valid),
		Skipped:       skipped,
		TotalCost:     totalCost,
		Remaining:     remaining,
		Items:         recordLines,
	}, nil
}

// partitionLines 拆分有效与无效行项，无效行跳过并记日志
func (s *IngestionService) partitionLines(procurementID string, lines []LineInput) ([]validLine, int) {
	var valid []validLine
	skipped := 0

	for i, l := range lines {
		reason := ""
		switch {
		case strings.TrimSpace(l.ItemName) == "":
			reason = "缺少物品名称"
		case l.Quantity <= 0:
			reason = "数量缺失或不为正"
		case l.PricePerUnit == nil:
			reason = "缺少单价"
		case l.PricePerUnit.IsNegative():
			reason = "单价为负"
		}
		if reason != "" {
			skipped++
			s.logger.Warn("跳过无效入库行项",
				zap.String("procurement_id", procurementID),
				zap.Int("line", i),
				zap.String("reason", reason),
			)
			continue
		}

		unit := strings.TrimSpace(l.Unit)
		if unit == "" {
			unit = "pcs"
		}
		price := *l.PricePerUnit
		valid = append(valid, validLine{
			name:     l.ItemName,
			quantity: l.Quantity,
			unit:     unit,
			price:    price,
			total:    price.Mul(decimal.NewFromFloat(l.Quantity)),
		})
	}

	return valid, skipped
}
