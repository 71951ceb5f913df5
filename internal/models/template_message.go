package models

import "time"

// TemplateMessage 模板消息表
type TemplateMessage struct {
	ID            uint       `gorm:"primarykey" json:"id"`                  // 主键
	MiniProgramID uint       `gorm:"index;not null" json:"mini_program_id"` // 所属小程序
	UserID        uint       `gorm:"index;not null" json:"user_id"`         // 接收用户
	ToOpenID      string     `gorm:"not null" json:"to_open_id"`            // 接收方 OpenId
	TemplateID    string     `gorm:"not null" json:"template_id"`           // 平台模板 ID
	Page          string     `gorm:"default:''" json:"page"`                // 跳转页面路径
	Data          string     `gorm:"type:text" json:"data"`                 // 消息内容（JSON）
	IsSent        bool       `gorm:"index;not null;default:false" json:"is_sent"` // 是否已发送
	SentAt        *time.Time `json:"sent_at"`                               // 发送时间
	SendResult    string     `gorm:"default:''" json:"send_result"`         // 发送结果（success 或失败原因）
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                            // 更新时间
}

// TableName 指定表名
func (TemplateMessage) TableName() string {
	return "template_messages"
}
