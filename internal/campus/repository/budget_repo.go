package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BudgetRepository 预算仓库
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Create 创建预算
func (r *BudgetRepository) Create(ctx context.Context, budget *entity.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(budget).Error
}

// FindByID 按ID查询预算
func (r *BudgetRepository) FindByID(ctx context.Context, id string) (*entity.Budget, error) {
	var budget entity.Budget
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// FindByDepartment 按部门查询预算
func (r *BudgetRepository) FindByDepartment(ctx context.Context, department string) (*entity.Budget, error) {
	var budget entity.Budget
	err := r.db.WithContext(ctx).Where("department = ?", department).First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// FindByDepartmentWithTransactions 按部门查询预算并带出交易明细
func (r *BudgetRepository) FindByDepartmentWithTransactions(ctx context.Context, department string) (*entity.Budget, error) {
	var budget entity.Budget
	err := r.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("department = ?", department).
		First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// ExistsByDepartment 部门预算是否已存在，excludeID 用于更新时排除自身
func (r *BudgetRepository) ExistsByDepartment(ctx context.Context, department, excludeID string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.Budget{}).Where("department = ?", department)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 预算列表
func (r *BudgetRepository) List(ctx context.Context) ([]entity.Budget, error) {
	var budgets []entity.Budget
	err := r.db.WithContext(ctx).Order("department ASC").Find(&budgets).Error
	return budgets, err
}

// Update 更新预算的部门名与额度
// 只写这两列：spent_amount 由入库事务持锁修改，这里整行覆盖会把
// 并发入库已提交的开销冲掉
func (r *BudgetRepository) Update(ctx context.Context, budget *entity.Budget) error {
	return r.db.WithContext(ctx).Model(&entity.Budget{}).
		Where("id = ?", budget.ID).
		Updates(map[string]interface{}{
			"department":       budget.Department,
			"allocated_amount": budget.AllocatedAmount,
		}).Error
}

// Delete 删除预算及其全部交易记录
func (r *BudgetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", id).Delete(&entity.BudgetTransaction{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.Budget{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
