package models

import "time"

// AuthCode 授权码审计表（只增不改）
type AuthCode struct {
	ID             uint       `gorm:"primarykey" json:"id"`                  // 主键
	MiniProgramID  uint       `gorm:"index;not null" json:"mini_program_id"` // 所属小程序
	UserID         *uint      `gorm:"index" json:"user_id"`                  // 关联用户（用户删除后保留历史）
	AuthCode       string     `gorm:"size:128;index;not null" json:"auth_code"` // 平台授权码
	Scope          string     `gorm:"size:32;not null" json:"scope"`         // 授权范围（auth_base/auth_user）
	ExternalUserID string     `gorm:"default:''" json:"external_user_id"`    // 平台 UserId
	OpenID         string     `gorm:"default:''" json:"open_id"`             // 平台 OpenId
	AccessToken    string     `gorm:"default:''" json:"-"`                   // 访问令牌
	RefreshToken   string     `gorm:"default:''" json:"-"`                   // 刷新令牌
	ExpiresIn      int64      `gorm:"not null;default:1" json:"expires_in"`  // 访问令牌有效期（秒，下限 1）
	ReExpiresIn    int64      `gorm:"not null;default:1" json:"re_expires_in"` // 刷新令牌有效期（秒，下限 1）
	AuthStart      *time.Time `json:"auth_start"`                            // 平台授权起始时间
	Sign           string     `gorm:"default:''" json:"-"`                   // 平台签名（可选）
	ClientIP       string     `gorm:"default:''" json:"client_ip"`           // 请求来源 IP
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`               // 创建时间
}

// TableName 指定表名
func (AuthCode) TableName() string {
	return "auth_codes"
}
