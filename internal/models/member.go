package models

import (
	"time"

	"gorm.io/gorm"
)

// Member 业务会员表（会话主体）
type Member struct {
	ID        uint           `gorm:"primarykey" json:"id"`           // 主键
	UserID    uint           `gorm:"uniqueIndex;not null" json:"user_id"` // 关联小程序用户
	Mobile    string         `gorm:"default:''" json:"mobile"`       // 手机号（可空）
	Status    string         `gorm:"default:'active'" json:"status"` // 账号状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`        // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`        // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                 // 软删除时间
}

// TableName 指定表名
func (Member) TableName() string {
	return "members"
}
