package models

import (
	"time"

	"gorm.io/gorm"
)

// MiniProgram 小程序配置表
type MiniProgram struct {
	ID              uint           `gorm:"primarykey" json:"id"`                 // 主键
	Code            string         `gorm:"uniqueIndex;not null" json:"code"`     // 对外应用标识
	Name            string         `gorm:"default:''" json:"name"`               // 小程序名称
	AppID           string         `gorm:"not null" json:"app_id"`               // 支付宝应用 AppId
	PrivateKey      string         `gorm:"type:text;not null" json:"-"`          // 应用 RSA 私钥（不返回给前端）
	AlipayPublicKey string         `gorm:"type:text" json:"-"`                   // 支付宝平台公钥
	EncryptKey      string         `gorm:"default:''" json:"-"`                  // AES 解密密钥（base64，可选）
	GatewayURL      string         `gorm:"default:''" json:"gateway_url"`        // 网关地址（空则用全局配置）
	Remark          string         `gorm:"default:''" json:"remark"`             // 备注
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`              // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                       // 软删除时间
}

// TableName 指定表名
func (MiniProgram) TableName() string {
	return "mini_programs"
}
