package entity

import "time"

// User 用户实体，角色分学生/教职工/管理员
type User struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	Username  string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Name      string     `json:"name" gorm:"size:64;not null"`
	Email     string     `json:"email" gorm:"size:128;uniqueIndex"`
	Role      string     `json:"role" gorm:"size:16;not null;default:student"` // student/staff/admin
	Status    string     `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// 用户角色
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)
