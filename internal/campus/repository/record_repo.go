package repository

import (
	"context"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryRecordRepository 库存变动日志仓库
type InventoryRecordRepository struct {
	db *gorm.DB
}

func NewInventoryRecordRepository(db *gorm.DB) *InventoryRecordRepository {
	return &InventoryRecordRepository{db: db}
}

// Create 追加一条变动日志
func (r *InventoryRecordRepository) Create(ctx context.Context, record *entity.InventoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// List 变动日志列表，时间倒序
func (r *InventoryRecordRepository) List(ctx context.Context, page, pageSize int, action string) ([]entity.InventoryRecord, int64, error) {
	var records []entity.InventoryRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InventoryRecord{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}

// PurgeAll 清空全部变动日志，管理员批量清理用
func (r *InventoryRecordRepository) PurgeAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entity.InventoryRecord{})
	return result.RowsAffected, result.Error
}
