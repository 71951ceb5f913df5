package models

import "time"

// FormID 表单 formId 表
type FormID struct {
	ID            uint      `gorm:"primarykey" json:"id"`                  // 主键
	MiniProgramID uint      `gorm:"index;not null" json:"mini_program_id"` // 所属小程序
	UserID        uint      `gorm:"index;not null" json:"user_id"`         // 所属用户
	Token         string    `gorm:"not null" json:"token"`                 // 平台下发的 formId
	ExpireAt      time.Time `gorm:"index;not null" json:"expire_at"`       // 过期时间
	UsedCount     int       `gorm:"not null;default:0" json:"used_count"`  // 已消费次数（只增）
	CreatedAt     time.Time `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                            // 更新时间
}

// TableName 指定表名
func (FormID) TableName() string {
	return "form_ids"
}
