package handler

import (
	"bytes"
	"fmt"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/gin-gonic/gin"
)

// InventoryHandler 库存处理器
type InventoryHandler struct {
	svc       *service.InventoryService
	ingestion *service.IngestionService
}

func NewInventoryHandler(svc *service.InventoryService, ingestion *service.IngestionService) *InventoryHandler {
	return &InventoryHandler{svc: svc, ingestion: ingestion}
}

// List 库存列表
// GET /api/v1/inventory?search=xxx
func (h *InventoryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), repository.InventoryListParams{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		InternalError(c, "获取库存列表失败: "+err.Error())
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

// AddRequest 采购入库请求
type AddRequest struct {
	ProcurementID string              `json:"procurement_id" binding:"required"`
	Items         []service.LineInput `json:"items" binding:"required"`
}

// Add 采购入库
// POST /api/v1/inventory/add
func (h *InventoryHandler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.ingestion.Ingest(c.Request.Context(), req.ProcurementID, GetUserID(c), req.Items)
	if err != nil {
		FromError(c, err)
		return
	}

	msg := fmt.Sprintf("成功入库 %d 项物品", result.Applied)
	if result.Skipped > 0 {
		msg = fmt.Sprintf("成功入库 %d 项物品, 跳过 %d 项无效行", result.Applied, result.Skipped)
	}
	SuccessMsg(c, msg, result)
}

// ConsumeRequest 消耗请求
type ConsumeRequest struct {
	Quantity float64 `json:"quantity" binding:"required"`
	Note     string  `json:"note"`
}

// Consume 消耗库存
// POST /api/v1/inventory/consume/:itemId
// 只有该物品的最后修改人或管理员可以消耗
func (h *InventoryHandler) Consume(c *gin.Context) {
	itemID := c.Param("itemId")

	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.Get(c.Request.Context(), itemID)
	if err != nil {
		FromError(c, err)
		return
	}

	actorID := GetUserID(c)
	if item.LastUpdatedBy != actorID && GetUserRole(c) != entity.RoleAdmin {
		Forbidden(c, "只有该物品的最后修改人或管理员可以消耗库存")
		return
	}

	result, err := h.svc.Consume(c.Request.Context(), itemID, req.Quantity, actorID, req.Note)
	if err != nil {
		FromError(c, err)
		return
	}

	SuccessMsg(c, fmt.Sprintf("已消耗 %s x%.2f", result.ItemName, req.Quantity), result)
}

// ListRecords 库存变动日志
// GET /api/v1/inventory/records?action=added
func (h *InventoryHandler) ListRecords(c *gin.Context) {
	page, pageSize := GetPagination(c)
	records, total, err := h.svc.ListRecords(c.Request.Context(), page, pageSize, c.Query("action"))
	if err != nil {
		InternalError(c, "获取库存日志失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: records,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: TotalPages(total, pageSize),
		},
	})
}

// PurgeRecords 清空库存变动日志
// DELETE /api/v1/inventory/records
func (h *InventoryHandler) PurgeRecords(c *gin.Context) {
	count, err := h.svc.PurgeRecords(c.Request.Context())
	if err != nil {
		InternalError(c, "清空库存日志失败: "+err.Error())
		return
	}
	SuccessMsg(c, fmt.Sprintf("已清空 %d 条库存日志", count), gin.H{"purged": count})
}

// Export 导出库存报表
// GET /api/v1/inventory/export
func (h *InventoryHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.Export(c.Request.Context())
	if err != nil {
		InternalError(c, "导出库存报表失败: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		InternalError(c, "生成报表文件失败: "+err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
