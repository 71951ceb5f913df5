package models

import (
	"time"

	"gorm.io/gorm"
)

// User 小程序用户表
type User struct {
	ID               uint           `gorm:"primarykey" json:"id"`                // 主键
	MiniProgramID    uint           `gorm:"index;not null" json:"mini_program_id"` // 所属小程序
	OpenID           string         `gorm:"uniqueIndex;not null" json:"open_id"` // 支付宝 OpenId
	Nickname         string         `gorm:"default:''" json:"nickname"`          // 昵称
	AvatarURL        string         `gorm:"default:''" json:"avatar_url"`        // 头像
	Province         string         `gorm:"default:''" json:"province"`          // 省份
	City             string         `gorm:"default:''" json:"city"`              // 城市
	Gender           string         `gorm:"default:''" json:"gender"`            // 性别（m/f/空）
	LastInfoUpdateAt *time.Time     `json:"last_info_update_at"`                 // 资料最近刷新时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`             // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`             // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                      // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
