package repository

import (
	"errors"

	"github.com/alimini-next/internal/models"

	"gorm.io/gorm"
)

// PhoneRepository 手机号数据访问接口
type PhoneRepository interface {
	GetByNumber(number string) (*models.Phone, error)
	Create(phone *models.Phone) error
	CreateBinding(binding *models.UserPhoneBinding) error
	ListNumbersByUserID(userID uint) ([]string, error)
	LatestBindingByUserID(userID uint) (*models.UserPhoneBinding, error)
	GetByID(id uint) (*models.Phone, error)
}

// GormPhoneRepository GORM 实现
type GormPhoneRepository struct {
	db *gorm.DB
}

// NewPhoneRepository 创建手机号仓库
func NewPhoneRepository(db *gorm.DB) *GormPhoneRepository {
	return &GormPhoneRepository{db: db}
}

// GetByNumber 根据号码获取手机号记录
func (r *GormPhoneRepository) GetByNumber(number string) (*models.Phone, error) {
	var phone models.Phone
	if err := r.db.Where("number = ?", number).First(&phone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &phone, nil
}

// GetByID 根据 ID 获取手机号记录
func (r *GormPhoneRepository) GetByID(id uint) (*models.Phone, error) {
	var phone models.Phone
	if err := r.db.First(&phone, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &phone, nil
}

// Create 创建手机号记录
func (r *GormPhoneRepository) Create(phone *models.Phone) error {
	return r.db.Create(phone).Error
}

// CreateBinding 追加用户手机号绑定
func (r *GormPhoneRepository) CreateBinding(binding *models.UserPhoneBinding) error {
	return r.db.Create(binding).Error
}

// ListNumbersByUserID 获取用户绑定过的全部号码（按绑定先后排序）
func (r *GormPhoneRepository) ListNumbersByUserID(userID uint) ([]string, error) {
	var numbers []string
	err := r.db.Model(&models.UserPhoneBinding{}).
		Joins("JOIN phones ON phones.id = user_phone_bindings.phone_id").
		Where("user_phone_bindings.user_id = ?", userID).
		Order("user_phone_bindings.id ASC").
		Pluck("phones.number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// LatestBindingByUserID 获取用户最近一次手机号绑定
func (r *GormPhoneRepository) LatestBindingByUserID(userID uint) (*models.UserPhoneBinding, error) {
	var binding models.UserPhoneBinding
	err := r.db.Where("user_id = ?", userID).Order("id DESC").First(&binding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &binding, nil
}
