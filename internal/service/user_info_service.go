package service

import (
	"context"
	"strings"
	"time"

	"github.com/alimini-next/internal/alipay"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/constants"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/repository"
)

// UserInfoGateway 用户资料查询网关，测试用桩替换
type UserInfoGateway interface {
	FetchUserInfo(ctx context.Context, cfg *alipay.Config, authToken string) (*alipay.UserInfoResponse, error)
}

// AlipayUserInfoGateway 生产实现，直连开放平台网关
type AlipayUserInfoGateway struct{}

// FetchUserInfo 拉取用户资料
func (AlipayUserInfoGateway) FetchUserInfo(ctx context.Context, cfg *alipay.Config, authToken string) (*alipay.UserInfoResponse, error) {
	return alipay.FetchUserInfo(ctx, cfg, authToken)
}

// UserInfoService 用户资料异步刷新
type UserInfoService struct {
	cfg             *config.Config
	userRepo        repository.UserRepository
	miniProgramRepo repository.MiniProgramRepository
	authCodeRepo    repository.AuthCodeRepository
	gateway         UserInfoGateway
}

// NewUserInfoService 创建用户资料刷新服务
func NewUserInfoService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	miniProgramRepo repository.MiniProgramRepository,
	authCodeRepo repository.AuthCodeRepository,
	gateway UserInfoGateway,
) *UserInfoService {
	return &UserInfoService{
		cfg:             cfg,
		userRepo:        userRepo,
		miniProgramRepo: miniProgramRepo,
		authCodeRepo:    authCodeRepo,
		gateway:         gateway,
	}
}

// RefreshUserInfo 用授权换票留下的 access_token 拉取资料并回写用户档案
func (s *UserInfoService) RefreshUserInfo(ctx context.Context, userID uint, authCode string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	mp, err := s.miniProgramRepo.GetByID(user.MiniProgramID)
	if err != nil {
		return err
	}
	if mp == nil {
		return ErrMiniProgramNotFound
	}

	audit, err := s.authCodeRepo.GetLatestByCode(strings.TrimSpace(authCode))
	if err != nil {
		return err
	}
	if audit == nil || strings.TrimSpace(audit.AccessToken) == "" {
		logger.Debugw("user_info_refresh_skip_no_token", "user_id", userID)
		return nil
	}

	resp, err := s.gateway.FetchUserInfo(ctx, buildGatewayConfig(s.cfg, mp), audit.AccessToken)
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		// 业务失败重试也不会成功，记录后放弃本次刷新
		logger.Warnw("user_info_refresh_rejected",
			"user_id", userID,
			"code", derefString(resp.Code),
			"sub_msg", derefString(resp.SubMsg),
		)
		return nil
	}

	if resp.NickName != nil {
		user.Nickname = strings.TrimSpace(*resp.NickName)
	}
	if resp.Avatar != nil {
		user.AvatarURL = strings.TrimSpace(*resp.Avatar)
	}
	if resp.Province != nil {
		user.Province = strings.TrimSpace(*resp.Province)
	}
	if resp.City != nil {
		user.City = strings.TrimSpace(*resp.City)
	}
	if resp.Gender != nil {
		user.Gender = normalizeGender(*resp.Gender)
	}
	now := time.Now()
	user.LastInfoUpdateAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	logger.Infow("user_info_refresh_done", "user_id", userID)
	return nil
}

// normalizeGender 平台侧返回 F/M，统一转为小写存储
func normalizeGender(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case constants.GenderMale:
		return constants.GenderMale
	case constants.GenderFemale:
		return constants.GenderFemale
	default:
		return constants.GenderUnknown
	}
}
