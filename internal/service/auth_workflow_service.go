package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alimini-next/internal/alipay"
	"github.com/alimini-next/internal/cache"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/constants"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/queue"
	"github.com/alimini-next/internal/repository"

	"github.com/hibiken/asynq"
)

const (
	authWorkflowLockTTL  = 30 * time.Second
	authIdempotentTTL    = 10 * time.Minute
	minTokenLifetimeSecs = int64(1)
)

// OAuthGateway 换票网关，测试用桩替换
type OAuthGateway interface {
	ExchangeOAuthToken(ctx context.Context, cfg *alipay.Config, authCode string) (*alipay.OAuthTokenResponse, error)
}

// AlipayOAuthGateway 生产实现，直连开放平台网关
type AlipayOAuthGateway struct{}

// ExchangeOAuthToken 授权码换票
func (AlipayOAuthGateway) ExchangeOAuthToken(ctx context.Context, cfg *alipay.Config, authCode string) (*alipay.OAuthTokenResponse, error) {
	return alipay.ExchangeOAuthToken(ctx, cfg, authCode)
}

// Locker 分布式互斥执行
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// IdempotencyCache 幂等结果缓存
type IdempotencyCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// InfoRefreshEnqueuer 用户资料刷新任务入队
type InfoRefreshEnqueuer interface {
	EnqueueUserInfoRefresh(payload queue.UserInfoRefreshPayload, opts ...asynq.Option) error
}

// UploadAuthCodeInput 授权码上报输入
type UploadAuthCodeInput struct {
	AppCode  string `json:"app_code"`
	Scope    string `json:"scope"`
	AuthCode string `json:"auth_code"`
	ClientIP string `json:"client_ip"`
}

// UserInfoSnapshot 同步阶段的用户资料快照（异步刷新前的值）
type UserInfoSnapshot struct {
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Province  string `json:"province"`
	City      string `json:"city"`
	Gender    string `json:"gender"`
}

// UploadAuthCodeResult 授权码上报结果
type UploadAuthCodeResult struct {
	UserID          string            `json:"user_id"`
	OpenID          string            `json:"open_id"`
	AccessToken     string            `json:"access_token"`
	RefreshToken    string            `json:"refresh_token"`
	ExpiresIn       int64             `json:"expires_in"`
	ReExpiresIn     int64             `json:"re_expires_in"`
	AuthStart       *time.Time        `json:"auth_start,omitempty"`
	SessionToken    string            `json:"session_token"`
	SessionExpireAt time.Time         `json:"session_expire_at"`
	Phones          []string          `json:"phones"`
	UserInfo        *UserInfoSnapshot `json:"user_info,omitempty"`
}

// AuthWorkflowService 授权码换票编排
type AuthWorkflowService struct {
	cfg             *config.Config
	miniProgramRepo repository.MiniProgramRepository
	userRepo        repository.UserRepository
	authCodeRepo    repository.AuthCodeRepository
	phoneRepo       repository.PhoneRepository
	sessionService  *SessionService
	gateway         OAuthGateway
	locker          Locker
	idemCache       IdempotencyCache
	enqueuer        InfoRefreshEnqueuer
}

// NewAuthWorkflowService 创建授权编排服务
func NewAuthWorkflowService(
	cfg *config.Config,
	miniProgramRepo repository.MiniProgramRepository,
	userRepo repository.UserRepository,
	authCodeRepo repository.AuthCodeRepository,
	phoneRepo repository.PhoneRepository,
	sessionService *SessionService,
	gateway OAuthGateway,
	locker Locker,
	idemCache IdempotencyCache,
	enqueuer InfoRefreshEnqueuer,
) *AuthWorkflowService {
	return &AuthWorkflowService{
		cfg:             cfg,
		miniProgramRepo: miniProgramRepo,
		userRepo:        userRepo,
		authCodeRepo:    authCodeRepo,
		phoneRepo:       phoneRepo,
		sessionService:  sessionService,
		gateway:         gateway,
		locker:          locker,
		idemCache:       idemCache,
		enqueuer:        enqueuer,
	}
}

// UploadAuthCode 上报授权码并换取会话。同一授权码幂等：
// 锁住整个流程，命中幂等缓存时直接返回历史结果，不再调网关。
func (s *AuthWorkflowService) UploadAuthCode(ctx context.Context, input UploadAuthCodeInput) (*UploadAuthCodeResult, error) {
	scope := strings.TrimSpace(input.Scope)
	if scope != constants.ScopeAuthBase && scope != constants.ScopeAuthUser {
		return nil, ErrInvalidScope
	}
	authCode := strings.TrimSpace(input.AuthCode)
	if authCode == "" {
		return nil, ErrAuthCodeMissing
	}

	idemKey := constants.AuthIdempotentKeyPrefix + authCode
	var cached UploadAuthCodeResult
	if hit, err := s.idemCache.Get(ctx, idemKey, &cached); err == nil && hit {
		return &cached, nil
	}

	var result *UploadAuthCodeResult
	lockKey := constants.AuthLockKeyPrefix + authCode
	err := s.locker.WithLock(ctx, lockKey, authWorkflowLockTTL, func(ctx context.Context) error {
		// 拿锁后二次确认，拦截排队进来的重复请求
		if hit, err := s.idemCache.Get(ctx, idemKey, &cached); err == nil && hit {
			result = &cached
			return nil
		}
		computed, err := s.runWorkflow(ctx, input, scope, authCode)
		if err != nil {
			return err
		}
		result = computed
		if err := s.idemCache.Set(ctx, idemKey, computed, authIdempotentTTL); err != nil {
			logger.Warnw("auth_idempotent_cache_set_failed", "error", err, "auth_code", authCode)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, ErrLockBusy
		}
		return nil, err
	}
	return result, nil
}

func (s *AuthWorkflowService) runWorkflow(ctx context.Context, input UploadAuthCodeInput, scope, authCode string) (*UploadAuthCodeResult, error) {
	mp, err := s.miniProgramRepo.GetByCode(strings.TrimSpace(input.AppCode))
	if err != nil {
		return nil, err
	}
	if mp == nil {
		return nil, ErrMiniProgramNotFound
	}

	gatewayCfg := buildGatewayConfig(s.cfg, mp)
	started := time.Now()
	resp, err := s.gateway.ExchangeOAuthToken(ctx, gatewayCfg, authCode)
	if err != nil {
		if errors.Is(err, alipay.ErrRequestTimeout) {
			logger.Warnw("auth_exchange_timeout",
				"app_code", mp.Code,
				"duration_ms", time.Since(started).Milliseconds(),
			)
			return nil, ErrGatewayTimeout
		}
		logger.Errorw("auth_exchange_failed",
			"app_code", mp.Code,
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err,
		)
		return nil, fmt.Errorf("换票请求失败: %w", err)
	}

	// 业务码透传；仅当后续步骤必需的字段缺失才判失败
	if resp.UserID == nil || resp.AccessToken == nil || resp.RefreshToken == nil {
		logger.Warnw("auth_exchange_incomplete",
			"app_code", mp.Code,
			"code", derefString(resp.Code),
			"sub_msg", derefString(resp.SubMsg),
		)
		return nil, ErrExchangeIncomplete
	}

	externalUserID := strings.TrimSpace(*resp.UserID)
	openID := externalUserID
	if resp.OpenID != nil && strings.TrimSpace(*resp.OpenID) != "" {
		openID = strings.TrimSpace(*resp.OpenID)
	}

	user, err := s.resolveUser(mp, openID)
	if err != nil {
		return nil, err
	}

	userID := user.ID
	audit := &models.AuthCode{
		MiniProgramID:  mp.ID,
		UserID:         &userID,
		AuthCode:       authCode,
		Scope:          scope,
		ExternalUserID: externalUserID,
		OpenID:         openID,
		AccessToken:    derefString(resp.AccessToken),
		RefreshToken:   derefString(resp.RefreshToken),
		ExpiresIn:      clampSeconds(resp.ExpiresIn),
		ReExpiresIn:    clampSeconds(resp.ReExpiresIn),
		AuthStart:      resp.AuthStart,
		Sign:           derefString(resp.Sign),
		ClientIP:       strings.TrimSpace(input.ClientIP),
	}
	if err := s.authCodeRepo.Create(audit); err != nil {
		return nil, err
	}

	// 审计记录落库后再入队，消费者依赖其中的 access_token
	if scope == constants.ScopeAuthUser {
		payload := queue.UserInfoRefreshPayload{UserID: user.ID, AuthCode: authCode}
		if err := s.enqueuer.EnqueueUserInfoRefresh(payload); err != nil {
			// 刷新是尽力而为的异步任务，入队失败不阻断授权
			logger.Warnw("user_info_refresh_enqueue_failed", "user_id", user.ID, "error", err)
		}
	}

	member, err := s.sessionService.ResolveMember(user)
	if err != nil {
		return nil, err
	}
	sessionToken, sessionExpireAt, err := s.sessionService.IssueToken(ctx, member, user)
	if err != nil {
		return nil, err
	}

	phones, err := s.phoneRepo.ListNumbersByUserID(user.ID)
	if err != nil {
		return nil, err
	}

	result := &UploadAuthCodeResult{
		UserID:          externalUserID,
		OpenID:          openID,
		AccessToken:     derefString(resp.AccessToken),
		RefreshToken:    derefString(resp.RefreshToken),
		ExpiresIn:       audit.ExpiresIn,
		ReExpiresIn:     audit.ReExpiresIn,
		AuthStart:       resp.AuthStart,
		SessionToken:    sessionToken,
		SessionExpireAt: sessionExpireAt,
		Phones:          phones,
	}
	if scope == constants.ScopeAuthUser {
		result.UserInfo = &UserInfoSnapshot{
			Nickname:  user.Nickname,
			AvatarURL: user.AvatarURL,
			Province:  user.Province,
			City:      user.City,
			Gender:    user.Gender,
		}
	}
	logger.Infow("auth_workflow_completed",
		"app_code", mp.Code,
		"user_id", user.ID,
		"scope", scope,
	)
	return result, nil
}

// resolveUser 按 OpenId 查找用户，不存在则先落库再继续
func (s *AuthWorkflowService) resolveUser(mp *models.MiniProgram, openID string) (*models.User, error) {
	user, err := s.userRepo.GetByOpenID(openID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	user = &models.User{MiniProgramID: mp.ID, OpenID: openID}
	if err := s.userRepo.Create(user); err != nil {
		if isDuplicateKeyErr(err) {
			return nil, ErrDuplicateSubmit
		}
		return nil, err
	}
	return user, nil
}

// buildGatewayConfig 按次构造网关配置，不共享缓存
func buildGatewayConfig(appCfg *config.Config, mp *models.MiniProgram) *alipay.Config {
	gatewayURL := strings.TrimSpace(mp.GatewayURL)
	if gatewayURL == "" && appCfg != nil {
		gatewayURL = appCfg.Alipay.GatewayURL
	}
	cfg := &alipay.Config{
		AppID:           mp.AppID,
		PrivateKey:      mp.PrivateKey,
		AlipayPublicKey: mp.AlipayPublicKey,
		EncryptKey:      mp.EncryptKey,
		GatewayURL:      gatewayURL,
	}
	cfg.Normalize()
	return cfg
}

// clampSeconds 有效期下限为 1 秒，缺失或非正值按 1 处理
func clampSeconds(value *int64) int64 {
	if value == nil || *value <= 0 {
		return minTokenLifetimeSecs
	}
	return *value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
