package repository

import (
	"errors"

	"github.com/alimini-next/internal/models"

	"gorm.io/gorm"
)

// MiniProgramRepository 小程序配置数据访问接口
type MiniProgramRepository interface {
	GetByID(id uint) (*models.MiniProgram, error)
	GetByCode(code string) (*models.MiniProgram, error)
	Create(mp *models.MiniProgram) error
	Update(mp *models.MiniProgram) error
}

// GormMiniProgramRepository GORM 实现
type GormMiniProgramRepository struct {
	db *gorm.DB
}

// NewMiniProgramRepository 创建小程序配置仓库
func NewMiniProgramRepository(db *gorm.DB) *GormMiniProgramRepository {
	return &GormMiniProgramRepository{db: db}
}

// GetByID 根据 ID 获取小程序配置
func (r *GormMiniProgramRepository) GetByID(id uint) (*models.MiniProgram, error) {
	var mp models.MiniProgram
	if err := r.db.First(&mp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mp, nil
}

// GetByCode 根据对外标识获取小程序配置
func (r *GormMiniProgramRepository) GetByCode(code string) (*models.MiniProgram, error) {
	var mp models.MiniProgram
	if err := r.db.Where("code = ?", code).First(&mp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mp, nil
}

// Create 创建小程序配置
func (r *GormMiniProgramRepository) Create(mp *models.MiniProgram) error {
	return r.db.Create(mp).Error
}

// Update 更新小程序配置
func (r *GormMiniProgramRepository) Update(mp *models.MiniProgram) error {
	return r.db.Save(mp).Error
}
