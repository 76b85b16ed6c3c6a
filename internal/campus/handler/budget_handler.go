package handler

import (
	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/gin-gonic/gin"
)

// BudgetHandler 预算处理器
type BudgetHandler struct {
	svc *service.BudgetService
}

func NewBudgetHandler(svc *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

// List 预算列表
// GET /api/v1/budgets
func (h *BudgetHandler) List(c *gin.Context) {
	budgets, err := h.svc.List(c.Request.Context())
	if err != nil {
		InternalError(c, "获取预算列表失败: "+err.Error())
		return
	}
	Success(c, budgets)
}

// Get 预算详情，含交易明细
// GET /api/v1/budgets/:department
func (h *BudgetHandler) Get(c *gin.Context) {
	budget, err := h.svc.Get(c.Request.Context(), c.Param("department"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, budget)
}

// GetRemaining 剩余预算
// GET /api/v1/budgets/:department/remaining
func (h *BudgetHandler) GetRemaining(c *gin.Context) {
	remaining, err := h.svc.GetRemaining(c.Request.Context(), c.Param("department"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, gin.H{
		"department": c.Param("department"),
		"remaining":  remaining,
	})
}

// Create 创建部门预算
// POST /api/v1/budgets
func (h *BudgetHandler) Create(c *gin.Context) {
	var req service.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	budget, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		FromError(c, err)
		return
	}
	Created(c, budget)
}

// Update 更新预算
// PUT /api/v1/budgets/:department
func (h *BudgetHandler) Update(c *gin.Context) {
	var req service.UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	budget, err := h.svc.Update(c.Request.Context(), c.Param("department"), &req)
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, budget)
}

// Delete 删除预算
// DELETE /api/v1/budgets/:department
func (h *BudgetHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("department")); err != nil {
		FromError(c, err)
		return
	}
	Success(c, nil)
}
