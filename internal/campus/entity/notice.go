package entity

import "time"

// Notice 公告，可附带附件文件
type Notice struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Title        string    `json:"title" gorm:"size:200;not null"`
	Body         string    `json:"body" gorm:"type:text"`
	Audience     string    `json:"audience" gorm:"size:16;not null;default:all"` // all/student/staff
	FileName     string    `json:"file_name" gorm:"size:255"`
	OriginalName string    `json:"original_name" gorm:"size:255"`
	PostedBy     string    `json:"posted_by" gorm:"size:32;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Notice) TableName() string {
	return "notices"
}

// 公告受众
const (
	NoticeAudienceAll     = "all"
	NoticeAudienceStudent = "student"
	NoticeAudienceStaff   = "staff"
)
