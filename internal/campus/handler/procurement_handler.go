package handler

import (
	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/gin-gonic/gin"
)

// ProcurementHandler 采购单处理器
type ProcurementHandler struct {
	svc *service.ProcurementService
}

func NewProcurementHandler(svc *service.ProcurementService) *ProcurementHandler {
	return &ProcurementHandler{svc: svc}
}

// List 采购单列表
// GET /api/v1/procurements?status=pending&uploader_id=xxx
func (h *ProcurementHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":      c.Query("status"),
		"uploader_id": c.Query("uploader_id"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: TotalPages(total, pageSize),
		},
	})
}

// Upload 上传采购凭证
// POST /api/v1/procurements  multipart字段 file
func (h *ProcurementHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "没有上传文件: "+err.Error())
		return
	}

	p, err := h.svc.Upload(c.Request.Context(), GetUserID(c), fileHeader)
	if err != nil {
		InternalError(c, "上传采购单失败: "+err.Error())
		return
	}
	Created(c, p)
}

// AcceptRequest 批量审批请求
type AcceptRequest struct {
	AcceptIDs []string `json:"accept_ids"`
}

// Accept 批量审批待审批队列，白名单外的待审批单全部清除
// POST /api/v1/procurements/accept
func (h *ProcurementHandler) Accept(c *gin.Context) {
	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Decide(c.Request.Context(), req.AcceptIDs)
	if err != nil {
		InternalError(c, "批量审批失败: "+err.Error())
		return
	}
	Success(c, result)
}

// Deny 拒绝单张采购单
// POST /api/v1/procurements/:id/deny
func (h *ProcurementHandler) Deny(c *gin.Context) {
	if err := h.svc.Deny(c.Request.Context(), c.Param("id")); err != nil {
		FromError(c, err)
		return
	}
	Success(c, nil)
}

// Delete 删除采购单，上传人本人或管理员
// DELETE /api/v1/procurements/:id
func (h *ProcurementHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, nil)
}

// Download 下载采购凭证
// GET /api/v1/procurements/:id/download
func (h *ProcurementHandler) Download(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		FromError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+p.OriginalName+"\"")
	c.File(h.svc.FilePath(p))
}
