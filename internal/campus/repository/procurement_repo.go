package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcurementRepository 采购单仓库
type ProcurementRepository struct {
	db *gorm.DB
}

func NewProcurementRepository(db *gorm.DB) *ProcurementRepository {
	return &ProcurementRepository{db: db}
}

// Create 创建采购单
func (r *ProcurementRepository) Create(ctx context.Context, p *entity.Procurement) error {
	if p.ID == "" {
		p.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID 按ID查询采购单
func (r *ProcurementRepository) FindByID(ctx context.Context, id string) (*entity.Procurement, error) {
	var p entity.Procurement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List 采购单列表
func (r *ProcurementRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Procurement, int64, error) {
	var items []entity.Procurement
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Procurement{})
	if v := filters["status"]; v != "" {
		query = query.Where("status = ?", v)
	}
	if v := filters["uploader_id"]; v != "" {
		query = query.Where("uploader_id = ?", v)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Uploader").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// Delete 删除采购单
func (r *ProcurementRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Procurement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus 按状态统计采购单数量
func (r *ProcurementRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Procurement{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
