package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"go.uber.org/zap"
)

const noticeSubDir = "notices"

// NoticeService 公告服务
type NoticeService struct {
	repo      *repository.NoticeRepository
	uploadDir string
	logger    *zap.Logger
}

func NewNoticeService(repo *repository.NoticeRepository, uploadDir string, logger *zap.Logger) *NoticeService {
	return &NoticeService{repo: repo, uploadDir: uploadDir, logger: logger}
}

// List 公告列表
func (s *NoticeService) List(ctx context.Context, page, pageSize int, audience string) ([]entity.Notice, int64, error) {
	return s.repo.List(ctx, page, pageSize, audience)
}

// Create 发布公告，附件可选
func (s *NoticeService) Create(ctx context.Context, postedBy, title, body, audience string, fileHeader *multipart.FileHeader) (*entity.Notice, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("公告标题不能为空: %w", ErrValidation)
	}

	switch audience {
	case "", entity.NoticeAudienceAll:
		audience = entity.NoticeAudienceAll
	case entity.NoticeAudienceStudent, entity.NoticeAudienceStaff:
	default:
		return nil, fmt.Errorf("无效的公告受众 %s: %w", audience, ErrValidation)
	}

	notice := &entity.Notice{
		Title:    strings.TrimSpace(title),
		Body:     body,
		Audience: audience,
		PostedBy: postedBy,
	}

	if fileHeader != nil {
		savedName, err := saveUploadedFile(s.uploadDir, noticeSubDir, fileHeader)
		if err != nil {
			return nil, err
		}
		notice.FileName = savedName
		notice.OriginalName = fileHeader.Filename
	}

	if err := s.repo.Create(ctx, notice); err != nil {
		if rmErr := removeStoredFile(s.uploadDir, noticeSubDir, notice.FileName); rmErr != nil {
			s.logger.Warn("清理公告附件失败", zap.String("file", notice.FileName), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("创建公告失败: %w", err)
	}
	return notice, nil
}

// Delete 删除公告，发布人本人或管理员可删，附件清理尽力而为
func (s *NoticeService) Delete(ctx context.Context, id, requesterID, requesterRole string) error {
	notice, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("公告不存在: %w", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if notice.PostedBy != requesterID && requesterRole != entity.RoleAdmin {
		return fmt.Errorf("只有发布人或管理员可以删除公告: %w", ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除公告失败: %w", err)
	}

	if err := removeStoredFile(s.uploadDir, noticeSubDir, notice.FileName); err != nil {
		s.logger.Warn("删除公告附件失败",
			zap.String("notice_id", notice.ID),
			zap.String("file", notice.FileName),
			zap.Error(err),
		)
	}
	return nil
}
