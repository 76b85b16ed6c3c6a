package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	User        *UserHandler
	Budget      *BudgetHandler
	Inventory   *InventoryHandler
	Procurement *ProcurementHandler
	Notice      *NoticeHandler
	Dashboard   *DashboardHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, userSvc UserLister) *Handlers {
	return &Handlers{
		User:        NewUserHandler(userSvc),
		Budget:      NewBudgetHandler(svc.Budget),
		Inventory:   NewInventoryHandler(svc.Inventory, svc.Ingestion),
		Procurement: NewProcurementHandler(svc.Procurement),
		Notice:      NewNoticeHandler(svc.Notice),
		Dashboard:   NewDashboardHandler(svc.Dashboard),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func SuccessMsg(c *gin.Context, message string, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// FromError 业务错误翻译为响应码
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		Error(c, 40400, err.Error())
	case errors.Is(err, service.ErrForbidden):
		Error(c, 40300, err.Error())
	case errors.Is(err, service.ErrConflict):
		Error(c, 40900, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		Error(c, 40902, err.Error())
	case errors.Is(err, service.ErrAlreadyProcessed):
		Error(c, 40903, err.Error())
	case errors.Is(err, service.ErrBudgetExceeded):
		Error(c, 40001, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		Error(c, 40002, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity):
		Error(c, 40003, err.Error())
	case errors.Is(err, service.ErrValidation):
		Error(c, 40004, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetUserRole(c *gin.Context) string {
	return c.GetString("user_role")
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func TotalPages(total int64, pageSize int) int {
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
