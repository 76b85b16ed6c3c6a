package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	User        *UserRepository
	Budget      *BudgetRepository
	Inventory   *InventoryRepository
	Procurement *ProcurementRepository
	Record      *InventoryRecordRepository
	Notice      *NoticeRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Budget:      NewBudgetRepository(db),
		Inventory:   NewInventoryRepository(db),
		Procurement: NewProcurementRepository(db),
		Record:      NewInventoryRecordRepository(db),
		Notice:      NewNoticeRepository(db),
	}
}
