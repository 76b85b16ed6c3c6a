package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem 库存物品，全局一张表，按物品名不区分大小写唯一
// NameKey 是去空格后小写的物品名，入口处归一化一次，查询不再做模糊匹配
type InventoryItem struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	ItemName      string          `json:"item_name" gorm:"size:200;not null"`
	NameKey       string          `json:"-" gorm:"size:200;uniqueIndex;not null"`
	Quantity      float64         `json:"quantity" gorm:"type:decimal(12,2);not null"`
	Unit          string          `json:"unit" gorm:"size:20;default:pcs"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit" gorm:"type:decimal(20,4);default:0"`
	LastUpdatedBy string          `json:"last_updated_by" gorm:"size:32"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NormalizeItemName 物品名归一化
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
