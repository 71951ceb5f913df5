package models

import "time"

// Phone 手机号表
type Phone struct {
	ID        uint      `gorm:"primarykey" json:"id"`               // 主键
	Number    string    `gorm:"uniqueIndex;not null" json:"number"` // 归一化手机号
	CreatedAt time.Time `gorm:"index" json:"created_at"`            // 创建时间
}

// TableName 指定表名
func (Phone) TableName() string {
	return "phones"
}

// UserPhoneBinding 用户手机号绑定表
type UserPhoneBinding struct {
	ID         uint      `gorm:"primarykey" json:"id"`       // 主键
	UserID     uint      `gorm:"index;not null" json:"user_id"` // 用户
	PhoneID    uint      `gorm:"index;not null" json:"phone_id"` // 手机号
	VerifiedAt time.Time `json:"verified_at"`                // 验证时间
	CreatedAt  time.Time `gorm:"index" json:"created_at"`    // 创建时间
}

// TableName 指定表名
func (UserPhoneBinding) TableName() string {
	return "user_phone_bindings"
}
