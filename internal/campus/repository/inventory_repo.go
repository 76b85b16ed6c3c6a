package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"gorm.io/gorm"
)

// InventoryRepository 库存仓库
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// InventoryListParams 库存列表查询参数
type InventoryListParams struct {
	Search   string
	Page     int
	PageSize int
}

// List 库存列表
func (r *InventoryRepository) List(ctx context.Context, params InventoryListParams) ([]entity.InventoryItem, int64, error) {
	var items []entity.InventoryItem
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InventoryItem{})
	if params.Search != "" {
		query = query.Where("name_key LIKE ?", "%"+entity.NormalizeItemName(params.Search)+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Page > 0 && params.PageSize > 0 {
		query = query.Offset((params.Page - 1) * params.PageSize).Limit(params.PageSize)
	}

	err := query.Order("item_name ASC").Find(&items).Error
	return items, total, err
}

// FindByID 按ID查询库存物品
func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// All 全量库存，导出报表用
func (r *InventoryRepository) All(ctx context.Context) ([]entity.InventoryItem, error) {
	var items []entity.InventoryItem
	err := r.db.WithContext(ctx).Order("item_name ASC").Find(&items).Error
	return items, err
}
