package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NoticeRepository 公告仓库
type NoticeRepository struct {
	db *gorm.DB
}

func NewNoticeRepository(db *gorm.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// Create 创建公告
func (r *NoticeRepository) Create(ctx context.Context, notice *entity.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(notice).Error
}

// FindByID 按ID查询公告
func (r *NoticeRepository) FindByID(ctx context.Context, id string) (*entity.Notice, error) {
	var notice entity.Notice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&notice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &notice, nil
}

// List 公告列表，audience 过滤时包含面向全体的公告
func (r *NoticeRepository) List(ctx context.Context, page, pageSize int, audience string) ([]entity.Notice, int64, error) {
	var notices []entity.Notice
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Notice{})
	if audience != "" && audience != entity.NoticeAudienceAll {
		query = query.Where("audience IN ?", []string{entity.NoticeAudienceAll, audience})
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&notices).Error

	return notices, total, err
}

// Delete 删除公告
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Notice{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
