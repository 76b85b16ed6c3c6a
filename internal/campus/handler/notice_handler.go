package handler

import (
	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/gin-gonic/gin"
)

// NoticeHandler 公告处理器
type NoticeHandler struct {
	svc *service.NoticeService
}

func NewNoticeHandler(svc *service.NoticeService) *NoticeHandler {
	return &NoticeHandler{svc: svc}
}

// List 公告列表，按登录角色过滤受众
// GET /api/v1/notices
func (h *NoticeHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	// 管理员和教职工看全部，学生只看面向全体和学生的
	audience := ""
	if GetUserRole(c) == entity.RoleStudent {
		audience = entity.NoticeAudienceStudent
	}

	notices, total, err := h.svc.List(c.Request.Context(), page, pageSize, audience)
	if err != nil {
		InternalError(c, "获取公告列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: notices,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: TotalPages(total, pageSize),
		},
	})
}

// Create 发布公告
// POST /api/v1/notices  multipart: title, body, audience, file(可选)
func (h *NoticeHandler) Create(c *gin.Context) {
	title := c.PostForm("title")
	body := c.PostForm("body")
	audience := c.PostForm("audience")

	// 附件可选
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fileHeader = nil
	}

	notice, err := h.svc.Create(c.Request.Context(), GetUserID(c), title, body, audience, fileHeader)
	if err != nil {
		FromError(c, err)
		return
	}
	Created(c, notice)
}

// Delete 删除公告
// DELETE /api/v1/notices/:id
func (h *NoticeHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, nil)
}
