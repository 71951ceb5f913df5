package repository

import (
	"errors"

	"github.com/alimini-next/internal/models"

	"gorm.io/gorm"
)

// MemberRepository 会员数据访问接口
type MemberRepository interface {
	GetByID(id uint) (*models.Member, error)
	GetByUserID(userID uint) (*models.Member, error)
	Create(member *models.Member) error
	Update(member *models.Member) error
}

// GormMemberRepository GORM 实现
type GormMemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 创建会员仓库
func NewMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// GetByID 根据 ID 获取会员
func (r *GormMemberRepository) GetByID(id uint) (*models.Member, error) {
	var member models.Member
	if err := r.db.First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetByUserID 根据用户 ID 获取会员
func (r *GormMemberRepository) GetByUserID(userID uint) (*models.Member, error) {
	var member models.Member
	if err := r.db.Where("user_id = ?", userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// Create 创建会员
func (r *GormMemberRepository) Create(member *models.Member) error {
	return r.db.Create(member).Error
}

// Update 更新会员
func (r *GormMemberRepository) Update(member *models.Member) error {
	return r.db.Save(member).Error
}
