package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Budget 部门预算，每个部门一条，spent_amount 只增不减
type Budget struct {
	ID              string          `json:"id" gorm:"primaryKey;size:32"`
	Department      string          `json:"department" gorm:"size:100;uniqueIndex;not null"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount" gorm:"type:decimal(20,4);default:0"`
	SpentAmount     decimal.Decimal `json:"spent_amount" gorm:"type:decimal(20,4);default:0"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// 关联
	Transactions []BudgetTransaction `json:"transactions,omitempty" gorm:"foreignKey:BudgetID;constraint:OnDelete:CASCADE"`
}

func (Budget) TableName() string {
	return "budgets"
}

// Remaining 剩余预算
func (b *Budget) Remaining() decimal.Decimal {
	return b.AllocatedAmount.Sub(b.SpentAmount)
}

// TransactionLine 采购交易行项，随交易一次性写入后不再修改
type TransactionLine struct {
	ItemName     string          `json:"item_name"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Total        decimal.Decimal `json:"total"`
}

// TransactionLines jsonb 行项数组
type TransactionLines []TransactionLine

func (l TransactionLines) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *TransactionLines) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan TransactionLines: %v", value)
	}
	return json.Unmarshal(bytes, l)
}

// BudgetTransaction 预算采购交易，追加后不可变更
type BudgetTransaction struct {
	ID            string           `json:"id" gorm:"primaryKey;size:32"`
	BudgetID      string           `json:"budget_id" gorm:"size:32;not null;index"`
	ProcurementID string           `json:"procurement_id" gorm:"size:32;index"`
	InventoryRef  string           `json:"inventory_ref" gorm:"size:32"`
	Lines         TransactionLines `json:"lines" gorm:"type:jsonb"`
	TotalCost     decimal.Decimal  `json:"total_cost" gorm:"type:decimal(20,4);not null"`
	AddedBy       string           `json:"added_by" gorm:"size:32"`
	CreatedAt     time.Time        `json:"created_at"`
}

func (BudgetTransaction) TableName() string {
	return "budget_transactions"
}
