package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/alimini-next/internal/alipay"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"
)

// TemplateSender 模板消息发送网关，测试用桩替换
type TemplateSender interface {
	SendTemplateMessage(ctx context.Context, cfg *alipay.Config, input alipay.TemplateMessageInput) (*alipay.SendResponse, error)
}

// AlipayTemplateSender 生产实现，直连开放平台网关
type AlipayTemplateSender struct{}

// SendTemplateMessage 发送模板消息
func (AlipayTemplateSender) SendTemplateMessage(ctx context.Context, cfg *alipay.Config, input alipay.TemplateMessageInput) (*alipay.SendResponse, error) {
	return alipay.SendTemplateMessage(ctx, cfg, input)
}

// TemplateMessageService 模板消息创建与批量下发
type TemplateMessageService struct {
	cfg             *config.Config
	msgRepo         repository.TemplateMessageRepository
	miniProgramRepo repository.MiniProgramRepository
	sender          TemplateSender
}

// NewTemplateMessageService 创建模板消息服务
func NewTemplateMessageService(
	cfg *config.Config,
	msgRepo repository.TemplateMessageRepository,
	miniProgramRepo repository.MiniProgramRepository,
	sender TemplateSender,
) *TemplateMessageService {
	return &TemplateMessageService{
		cfg:             cfg,
		msgRepo:         msgRepo,
		miniProgramRepo: miniProgramRepo,
		sender:          sender,
	}
}

// CreateTemplateMessageInput 模板消息创建输入
type CreateTemplateMessageInput struct {
	MiniProgramID uint              `json:"mini_program_id"`
	UserID        uint              `json:"user_id"`
	ToOpenID      string            `json:"to_open_id"`
	TemplateID    string            `json:"template_id"`
	Page          string            `json:"page"`
	Data          map[string]string `json:"data"`
}

// Create 创建一条待发送消息
func (s *TemplateMessageService) Create(input CreateTemplateMessageInput) (*models.TemplateMessage, error) {
	dataJSON := ""
	if len(input.Data) > 0 {
		encoded, err := json.Marshal(input.Data)
		if err != nil {
			return nil, err
		}
		dataJSON = string(encoded)
	}
	msg := &models.TemplateMessage{
		MiniProgramID: input.MiniProgramID,
		UserID:        input.UserID,
		ToOpenID:      strings.TrimSpace(input.ToOpenID),
		TemplateID:    strings.TrimSpace(input.TemplateID),
		Page:          strings.TrimSpace(input.Page),
		Data:          dataJSON,
		IsSent:        false,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendOne 发送单条消息。已发送的直接视为成功；
// 传输失败只记录原因，消息保持待发状态等下一轮补发。
func (s *TemplateMessageService) SendOne(ctx context.Context, msg *models.TemplateMessage) bool {
	if msg == nil {
		return false
	}
	if msg.IsSent {
		return true
	}
	mp, err := s.miniProgramRepo.GetByID(msg.MiniProgramID)
	if err != nil || mp == nil {
		s.recordFailure(msg, "小程序配置不存在")
		return false
	}
	resp, err := s.sender.SendTemplateMessage(ctx, buildGatewayConfig(s.cfg, mp), alipay.TemplateMessageInput{
		ToOpenID:   msg.ToOpenID,
		TemplateID: msg.TemplateID,
		Page:       msg.Page,
		Data:       msg.Data,
	})
	if err != nil {
		s.recordFailure(msg, err.Error())
		return false
	}

	now := time.Now()
	msg.IsSent = true
	msg.SentAt = &now
	if resp.Succeeded() {
		msg.SendResult = "success"
	} else {
		// 业务层拒绝也算送达结论，记录平台给出的原因
		result := resp.FailureMessage()
		if result == "" {
			result = "code=" + derefString(resp.Code)
		}
		msg.SendResult = result
	}
	if err := s.msgRepo.Update(msg); err != nil {
		logger.Errorw("template_message_update_failed", "message_id", msg.ID, "error", err)
		return false
	}
	return msg.SendResult == "success"
}

// SendPending 取出待发送消息逐条发送，单条失败不中断，返回成功条数
func (s *TemplateMessageService) SendPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = s.batchLimit()
	}
	msgs, err := s.msgRepo.ListUnsent(limit)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range msgs {
		if ok := s.SendOne(ctx, &msgs[i]); !ok {
			logger.Warnw("template_message_send_failed",
				"message_id", msgs[i].ID,
				"result", msgs[i].SendResult,
			)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *TemplateMessageService) recordFailure(msg *models.TemplateMessage, reason string) {
	msg.SendResult = reason
	if err := s.msgRepo.Update(msg); err != nil {
		logger.Errorw("template_message_update_failed", "message_id", msg.ID, "error", err)
	}
}

func (s *TemplateMessageService) batchLimit() int {
	if s.cfg != nil && s.cfg.TplMessage.BatchLimit > 0 {
		return s.cfg.TplMessage.BatchLimit
	}
	return 10
}
