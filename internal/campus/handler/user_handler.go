package handler

import (
	"context"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/gin-gonic/gin"
)

// UserLister 用户目录查询接口
type UserLister interface {
	List(ctx context.Context, page, pageSize int, role string) ([]entity.User, int64, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// UserHandler 用户目录处理器
type UserHandler struct {
	users UserLister
}

func NewUserHandler(users UserLister) *UserHandler {
	return &UserHandler{users: users}
}

// List 用户列表
// GET /api/v1/users?role=staff
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	role := c.Query("role")

	users, total, err := h.users.List(c.Request.Context(), page, pageSize, role)
	if err != nil {
		InternalError(c, "获取用户列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: users,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: TotalPages(total, pageSize),
		},
	})
}

// Get 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "用户不存在")
		return
	}
	Success(c, user)
}
