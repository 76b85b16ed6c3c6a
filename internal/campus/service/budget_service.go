package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/shopspring/decimal"
)

// BudgetService 部门预算服务
// 开销只增不减：没有冲正接口，纠错只能由管理员整单删除预算重建
type BudgetService struct {
	repo *repository.BudgetRepository
}

func NewBudgetService(repo *repository.BudgetRepository) *BudgetService {
	return &BudgetService{repo: repo}
}

// List 预算列表
func (s *BudgetService) List(ctx context.Context) ([]entity.Budget, error) {
	return s.repo.List(ctx)
}

// Get 预算详情，含交易明细
func (s *BudgetService) Get(ctx context.Context, department string) (*entity.Budget, error) {
	budget, err := s.repo.FindByDepartmentWithTransactions(ctx, department)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("部门 %s 没有预算: %w", department, ErrNotFound)
	}
	return budget, err
}

// GetRemaining 剩余预算
func (s *BudgetService) GetRemaining(ctx context.Context, department string) (decimal.Decimal, error) {
	budget, err := s.repo.FindByDepartment(ctx, department)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("部门 %s 没有预算: %w", department, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return budget.Remaining(), nil
}

// CreateBudgetRequest 创建预算请求
type CreateBudgetRequest struct {
	Department      string          `json:"department" binding:"required"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
}

// Create 创建部门预算，部门名唯一
func (s *BudgetService) Create(ctx context.Context, req *CreateBudgetRequest) (*entity.Budget, error) {
	if req.AllocatedAmount.IsNegative() {
		return nil, fmt.Errorf("预算额度不能为负: %w", ErrValidation)
	}

	exists, err := s.repo.ExistsByDepartment(ctx, req.Department, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("部门 %s 的预算已存在: %w", req.Department, ErrConflict)
	}

	budget := &entity.Budget{
		Department:      req.Department,
		AllocatedAmount: req.AllocatedAmount,
		SpentAmount:     decimal.Zero,
	}
	if err := s.repo.Create(ctx, budget); err != nil {
		return nil, fmt.Errorf("创建预算失败: %w", err)
	}
	return budget, nil
}

// UpdateBudgetRequest 更新预算请求
type UpdateBudgetRequest struct {
	Department      string          `json:"department"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
}

// Update 更新预算额度，允许改部门名，改名不能与其他预算冲突
func (s *BudgetService) Update(ctx context.Context, department string, req *UpdateBudgetRequest) (*entity.Budget, error) {
	budget, err := s.repo.FindByDepartment(ctx, department)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("部门 %s 没有预算: %w", department, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if req.AllocatedAmount.IsNegative() {
		return nil, fmt.Errorf("预算额度不能为负: %w", ErrValidation)
	}

	if req.Department != "" && req.Department != budget.Department {
		exists, err := s.repo.ExistsByDepartment(ctx, req.Department, budget.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("部门 %s 的预算已存在: %w", req.Department, ErrConflict)
		}
		budget.Department = req.Department
	}

	budget.AllocatedAmount = req.AllocatedAmount
	if err := s.repo.Update(ctx, budget); err != nil {
		return nil, fmt.Errorf("更新预算失败: %w", err)
	}
	return budget, nil
}

// Delete 删除预算及其交易记录
func (s *BudgetService) Delete(ctx context.Context, department string) error {
	budget, err := s.repo.FindByDepartment(ctx, department)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("部门 %s 没有预算: %w", department, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, budget.ID)
}
