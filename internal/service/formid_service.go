package service

import (
	"time"

	"github.com/alimini-next/internal/constants"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"
)

// FormIDService formId 生命周期管理
type FormIDService struct {
	formIDRepo repository.FormIDRepository
}

// NewFormIDService 创建 formId 服务
func NewFormIDService(formIDRepo repository.FormIDRepository) *FormIDService {
	return &FormIDService{formIDRepo: formIDRepo}
}

// Issue 保存一条新 formId，有效期 7 天，不去重
func (s *FormIDService) Issue(miniProgramID, userID uint, token string) (*models.FormID, error) {
	record := &models.FormID{
		MiniProgramID: miniProgramID,
		UserID:        userID,
		Token:         token,
		ExpireAt:      time.Now().Add(constants.FormIDSweepGraceDays * 24 * time.Hour),
		UsedCount:     0,
	}
	if err := s.formIDRepo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// AcquireConsumable 取出一条可消费的 formId 并计一次消费。
// 选最先过期的候选；无可用时返回 (nil, nil)。读后写之间
// 不加行锁，同一用户并发获取允许计数小幅超限。
func (s *FormIDService) AcquireConsumable(miniProgramID, userID uint) (*models.FormID, error) {
	record, err := s.formIDRepo.FirstConsumable(miniProgramID, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if err := s.formIDRepo.IncrementUsed(record); err != nil {
		return nil, err
	}
	return record, nil
}

// SweepExpired 清理从未消费且过期超过保留期的 formId，返回删除条数。
// 消费过的记录永久保留。
func (s *FormIDService) SweepExpired() (int64, error) {
	threshold := time.Now().Add(-constants.FormIDSweepGraceDays * 24 * time.Hour)
	count, err := s.formIDRepo.DeleteSweepable(threshold)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Infow("form_id_sweep_done", "deleted", count)
	}
	return count, nil
}
