package entity

import "time"

// Procurement 采购申请单，教职工上传凭证文件，管理员审批
// ItemsAdded 只能在 accepted 状态下置位，且最多置位一次
type Procurement struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	UploaderID   string    `json:"uploader_id" gorm:"size:32;not null;index"`
	FileName     string    `json:"file_name" gorm:"size:255;not null"` // 存储文件名
	OriginalName string    `json:"original_name" gorm:"size:255"`
	MimeType     string    `json:"mime_type" gorm:"size:100"`
	FileSize     int64     `json:"file_size"`
	Status       string    `json:"status" gorm:"size:20;not null;default:pending;index"` // pending/accepted/denied
	ItemsAdded   bool      `json:"items_added" gorm:"not null;default:false"`
	UploadedAt   time.Time `json:"uploaded_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 关联
	Uploader *User `json:"uploader,omitempty" gorm:"foreignKey:UploaderID"`
}

func (Procurement) TableName() string {
	return "procurements"
}

// 采购单状态
const (
	ProcurementStatusPending  = "pending"
	ProcurementStatusAccepted = "accepted"
	ProcurementStatusDenied   = "denied"
)
