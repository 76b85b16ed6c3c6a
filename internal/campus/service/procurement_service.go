package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const procurementSubDir = "procurements"

// ProcurementService 采购单审批流
// pending -> accepted | denied；accepted 之后由入库服务一次性置位 items_added
// 物理文件删除永远是尽力而为，文件缺失不阻塞状态流转
type ProcurementService struct {
	repo      *repository.ProcurementRepository
	db        *gorm.DB
	uploadDir string
	logger    *zap.Logger
}

func NewProcurementService(repo *repository.ProcurementRepository, db *gorm.DB, uploadDir string, logger *zap.Logger) *ProcurementService {
	return &ProcurementService{repo: repo, db: db, uploadDir: uploadDir, logger: logger}
}

// List 采购单列表
func (s *ProcurementService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Procurement, int64, error) {
	return s.repo.List(ctx, page, pageSize, filters)
}

// Get 采购单详情
func (s *ProcurementService) Get(ctx context.Context, id string) (*entity.Procurement, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("采购单不存在: %w", ErrNotFound)
	}
	return p, err
}

// FilePath 采购凭证的物理路径
func (s *ProcurementService) FilePath(p *entity.Procurement) string {
	return filepath.Join(s.uploadDir, procurementSubDir, p.FileName)
}

// Upload 上传采购凭证，创建待审批采购单
func (s *ProcurementService) Upload(ctx context.Context, uploaderID string, fileHeader *multipart.FileHeader) (*entity.Procurement, error) {
	savedName, err := saveUploadedFile(s.uploadDir, procurementSubDir, fileHeader)
	if err != nil {
		return nil, err
	}

	p := &entity.Procurement{
		UploaderID:   uploaderID,
		FileName:     savedName,
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		FileSize:     fileHeader.Size,
		Status:       entity.ProcurementStatusPending,
		ItemsAdded:   false,
		UploadedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		// 记录创建失败时清掉刚保存的文件
		if rmErr := removeStoredFile(s.uploadDir, procurementSubDir, savedName); rmErr != nil {
			s.logger.Warn("清理采购凭证文件失败", zap.String("file", savedName), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("创建采购单失败: %w", err)
	}
	return p, nil
}

// DecideResult 批量审批结果
type DecideResult struct {
	Accepted int `json:"accepted"`
	Purged   int `json:"purged"`
}

// Decide 批量审批整个待审批队列
// acceptIDs 是白名单：名单内的 pending 单转为 accepted，名单外的 pending 单整单删除并清文件
func (s *ProcurementService) Decide(ctx context.Context, acceptIDs []string) (*DecideResult, error) {
	acceptSet := make(map[string]bool, len(acceptIDs))
	for _, id := range acceptIDs {
		acceptSet[id] = true
	}

	var accepted []string
	var purged []entity.Procurement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []entity.Procurement
		if err := tx.Where("status = ?", entity.ProcurementStatusPending).
			Order("created_at ASC").
			Find(&pending).Error; err != nil {
			return err
		}

		for _, p := range pending {
			if acceptSet[p.ID] {
				accepted = append(accepted, p.ID)
			} else {
				purged = append(purged, p)
			}
		}

		if len(accepted) > 0 {
			if err := tx.Model(&entity.Procurement{}).
				Where("id IN ? AND status = ?", accepted, entity.ProcurementStatusPending).
				Updates(map[string]interface{}{
					"status":      entity.ProcurementStatusAccepted,
					"items_added": false,
				}).Error; err != nil {
				return err
			}
		}

		if len(purged) > 0 {
			ids := make([]string, 0, len(purged))
			for _, p := range purged {
				ids = append(ids, p.ID)
			}
			if err := tx.Where("id IN ?", ids).Delete(&entity.Procurement{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("批量审批失败: %w", err)
	}

	// 事务提交后再清文件，失败只记日志
	for _, p := range purged {
		if err := removeStoredFile(s.uploadDir, procurementSubDir, p.FileName); err != nil {
			s.logger.Warn("删除采购凭证文件失败",
				zap.String("procurement_id", p.ID),
				zap.String("file", p.FileName),
				zap.Error(err),
			)
		}
	}

	return &DecideResult{Accepted: len(accepted), Purged: len(purged)}, nil
}

// Deny 单独拒绝一张采购单，删记录并清文件
func (s *ProcurementService) Deny(ctx context.Context, id string) error {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("采购单不存在: %w", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除采购单失败: %w", err)
	}

	if err := removeStoredFile(s.uploadDir, procurementSubDir, p.FileName); err != nil {
		s.logger.Warn("删除采购凭证文件失败",
			zap.String("procurement_id", p.ID),
			zap.String("file", p.FileName),
			zap.Error(err),
		)
	}
	return nil
}

// Delete 删除采购单，只有上传人本人或管理员可以删
func (s *ProcurementService) Delete(ctx context.Context, id, requesterID, requesterRole string) error {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("采购单不存在: %w", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if p.UploaderID != requesterID && requesterRole != entity.RoleAdmin {
		return fmt.Errorf("只有上传人或管理员可以删除采购单: %w", ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除采购单失败: %w", err)
	}

	if err := removeStoredFile(s.uploadDir, procurementSubDir, p.FileName); err != nil {
		s.logger.Warn("删除采购凭证文件失败",
			zap.String("procurement_id", p.ID),
			zap.String("file", p.FileName),
			zap.Error(err),
		)
	}
	return nil
}
