package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RecordLine 库存变动行项，记录变动前后数量快照
type RecordLine struct {
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Total        decimal.Decimal `json:"total"`
	PrevQuantity float64         `json:"prev_quantity"`
	NewQuantity  float64         `json:"new_quantity"`
}

// RecordLines jsonb 行项数组
type RecordLines []RecordLine

func (l RecordLines) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *RecordLines) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan RecordLines: %v", value)
	}
	return json.Unmarshal(bytes, l)
}

// InventoryRecord 库存变动审计日志，只追加，后续失败不回滚已写入的日志
type InventoryRecord struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	Action      string          `json:"action" gorm:"size:20;not null;index"` // added/consumed
	Items       RecordLines     `json:"items" gorm:"type:jsonb"`
	TotalCost   decimal.Decimal `json:"total_cost" gorm:"type:decimal(20,4);default:0"`
	PerformedBy string          `json:"performed_by" gorm:"size:32"`
	Note        string          `json:"note" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
}

func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// 库存变动类型
const (
	RecordActionAdded    = "added"
	RecordActionConsumed = "consumed"
)
