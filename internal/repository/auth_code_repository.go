package repository

import (
	"errors"

	"github.com/alimini-next/internal/models"

	"gorm.io/gorm"
)

// AuthCodeRepository 授权码审计数据访问接口（只写不改）
type AuthCodeRepository interface {
	Create(record *models.AuthCode) error
	GetLatestByCode(authCode string) (*models.AuthCode, error)
	ListByUserID(userID uint) ([]models.AuthCode, error)
}

// GormAuthCodeRepository GORM 实现
type GormAuthCodeRepository struct {
	db *gorm.DB
}

// NewAuthCodeRepository 创建授权码审计仓库
func NewAuthCodeRepository(db *gorm.DB) *GormAuthCodeRepository {
	return &GormAuthCodeRepository{db: db}
}

// Create 写入审计记录
func (r *GormAuthCodeRepository) Create(record *models.AuthCode) error {
	return r.db.Create(record).Error
}

// GetLatestByCode 获取授权码对应的最新审计记录
func (r *GormAuthCodeRepository) GetLatestByCode(authCode string) (*models.AuthCode, error) {
	var record models.AuthCode
	if err := r.db.Where("auth_code = ?", authCode).Order("id DESC").First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByUserID 获取用户的授权历史
func (r *GormAuthCodeRepository) ListByUserID(userID uint) ([]models.AuthCode, error) {
	var records []models.AuthCode
	if err := r.db.Where("user_id = ?", userID).Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
