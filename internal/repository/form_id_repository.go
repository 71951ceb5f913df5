package repository

import (
	"errors"
	"time"

	"github.com/alimini-next/internal/constants"
	"github.com/alimini-next/internal/models"

	"gorm.io/gorm"
)

// FormIDRepository formId 数据访问接口
type FormIDRepository interface {
	Create(record *models.FormID) error
	FirstConsumable(miniProgramID, userID uint, now time.Time) (*models.FormID, error)
	IncrementUsed(record *models.FormID) error
	DeleteSweepable(threshold time.Time) (int64, error)
}

// GormFormIDRepository GORM 实现
type GormFormIDRepository struct {
	db *gorm.DB
}

// NewFormIDRepository 创建 formId 仓库
func NewFormIDRepository(db *gorm.DB) *GormFormIDRepository {
	return &GormFormIDRepository{db: db}
}

// Create 创建 formId 记录
func (r *GormFormIDRepository) Create(record *models.FormID) error {
	return r.db.Create(record).Error
}

// FirstConsumable 取最先过期的可消费记录
func (r *GormFormIDRepository) FirstConsumable(miniProgramID, userID uint, now time.Time) (*models.FormID, error) {
	var record models.FormID
	err := r.db.
		Where("mini_program_id = ? AND user_id = ?", miniProgramID, userID).
		Where("used_count < ? AND expire_at > ?", constants.FormIDMaxUseCount, now).
		Order("expire_at ASC, id ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// IncrementUsed 消费一次
func (r *GormFormIDRepository) IncrementUsed(record *models.FormID) error {
	err := r.db.Model(record).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
	if err != nil {
		return err
	}
	record.UsedCount++
	return nil
}

// DeleteSweepable 删除从未消费且超过保留期的记录，返回删除条数
func (r *GormFormIDRepository) DeleteSweepable(threshold time.Time) (int64, error) {
	result := r.db.
		Where("used_count = 0 AND expire_at <= ?", threshold).
		Delete(&models.FormID{})
	return result.RowsAffected, result.Error
}
