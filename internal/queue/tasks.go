package queue

import (
	"encoding/json"

	"github.com/alimini-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskUserInfoRefresh 用户资料异步刷新任务
	TaskUserInfoRefresh = constants.TaskUserInfoRefresh
)

// UserInfoRefreshPayload 用户资料刷新任务载荷
type UserInfoRefreshPayload struct {
	UserID   uint   `json:"user_id"`
	AuthCode string `json:"auth_code"`
}

// NewUserInfoRefreshTask 创建用户资料刷新任务
func NewUserInfoRefreshTask(payload UserInfoRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUserInfoRefresh, body), nil
}
