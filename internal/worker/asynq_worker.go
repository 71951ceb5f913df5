package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/provider"
	"github.com/alimini-next/internal/queue"
	"github.com/alimini-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskUserInfoRefresh, c.handleUserInfoRefresh)
}

func (c *Consumer) handleUserInfoRefresh(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_user_info_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.UserInfoRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_user_info_refresh_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 || payload.AuthCode == "" {
		logger.Debugw("worker_user_info_refresh_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.UserInfoService == nil {
		logger.Warnw("worker_user_info_refresh_skip_service_nil", "user_id", payload.UserID)
		return nil
	}
	if err := c.UserInfoService.RefreshUserInfo(ctx, payload.UserID, payload.AuthCode); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			logger.Debugw("worker_user_info_refresh_skip_user_not_found", "user_id", payload.UserID)
			return nil
		case errors.Is(err, service.ErrMiniProgramNotFound):
			logger.Debugw("worker_user_info_refresh_skip_mini_program_not_found", "user_id", payload.UserID)
			return nil
		default:
			logger.Warnw("worker_user_info_refresh_failed", "user_id", payload.UserID, "error", err)
			return err
		}
	}
	return nil
}
