package repository

import (
	"errors"

	"github.com/alimini-next/internal/models"

	"gorm.io/gorm"
)

// TemplateMessageRepository 模板消息数据访问接口
type TemplateMessageRepository interface {
	Create(msg *models.TemplateMessage) error
	GetByID(id uint) (*models.TemplateMessage, error)
	ListUnsent(limit int) ([]models.TemplateMessage, error)
	Update(msg *models.TemplateMessage) error
}

// GormTemplateMessageRepository GORM 实现
type GormTemplateMessageRepository struct {
	db *gorm.DB
}

// NewTemplateMessageRepository 创建模板消息仓库
func NewTemplateMessageRepository(db *gorm.DB) *GormTemplateMessageRepository {
	return &GormTemplateMessageRepository{db: db}
}

// Create 创建待发送消息
func (r *GormTemplateMessageRepository) Create(msg *models.TemplateMessage) error {
	return r.db.Create(msg).Error
}

// GetByID 根据 ID 获取消息
func (r *GormTemplateMessageRepository) GetByID(id uint) (*models.TemplateMessage, error) {
	var msg models.TemplateMessage
	if err := r.db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListUnsent 获取待发送消息
func (r *GormTemplateMessageRepository) ListUnsent(limit int) ([]models.TemplateMessage, error) {
	var msgs []models.TemplateMessage
	query := r.db.Where("is_sent = ?", false)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// Update 更新发送结果
func (r *GormTemplateMessageRepository) Update(msg *models.TemplateMessage) error {
	return r.db.Save(msg).Error
}
