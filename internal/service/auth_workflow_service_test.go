package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alimini-next/internal/alipay"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/queue"
	"github.com/alimini-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type stubOAuthGateway struct {
	calls int
	resp  *alipay.OAuthTokenResponse
	err   error
}

func (g *stubOAuthGateway) ExchangeOAuthToken(ctx context.Context, cfg *alipay.Config, authCode string) (*alipay.OAuthTokenResponse, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

type passthroughLocker struct{}

func (passthroughLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memoryIdemCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryIdemCache() *memoryIdemCache {
	return &memoryIdemCache{items: map[string][]byte{}}
}

func (c *memoryIdemCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *memoryIdemCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

type stubEnqueuer struct {
	payloads []queue.UserInfoRefreshPayload
}

func (e *stubEnqueuer) EnqueueUserInfoRefresh(payload queue.UserInfoRefreshPayload, opts ...asynq.Option) error {
	e.payloads = append(e.payloads, payload)
	return nil
}

type authWorkflowTestEnv struct {
	svc      *AuthWorkflowService
	gateway  *stubOAuthGateway
	enqueuer *stubEnqueuer
	db       *gorm.DB
}

func setupAuthWorkflowTest(t *testing.T, gateway *stubOAuthGateway) *authWorkflowTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_workflow_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.MiniProgram{},
		&models.User{},
		&models.Member{},
		&models.Phone{},
		&models.UserPhoneBinding{},
		&models.AuthCode{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	mp := models.MiniProgram{Code: "demo", Name: "演示小程序", AppID: "2021000000000001", PrivateKey: "key"}
	if err := db.Create(&mp).Error; err != nil {
		t.Fatalf("seed mini program failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.SessionJWT.SecretKey = "test-secret"
	cfg.SessionJWT.ExpireHours = 24
	cfg.Alipay.GatewayURL = "https://openapi.alipay.com/gateway.do"

	memberRepo := repository.NewMemberRepository(db)
	phoneRepo := repository.NewPhoneRepository(db)
	sessionSvc := NewSessionService(cfg, memberRepo, phoneRepo)
	enqueuer := &stubEnqueuer{}
	svc := NewAuthWorkflowService(
		cfg,
		repository.NewMiniProgramRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuthCodeRepository(db),
		phoneRepo,
		sessionSvc,
		gateway,
		passthroughLocker{},
		newMemoryIdemCache(),
		enqueuer,
	)
	return &authWorkflowTestEnv{svc: svc, gateway: gateway, enqueuer: enqueuer, db: db}
}

func strPtr(value string) *string { return &value }
func i64Ptr(value int64) *int64   { return &value }

func successTokenResponse() *alipay.OAuthTokenResponse {
	return &alipay.OAuthTokenResponse{
		Code:         strPtr("10000"),
		UserID:       strPtr("u1"),
		AccessToken:  strPtr("t1"),
		RefreshToken: strPtr("r1"),
		ExpiresIn:    i64Ptr(3600),
		Sign:         strPtr("gateway-sign=="),
	}
}

func TestAuthWorkflowBaseScope(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	result, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode:  "demo",
		Scope:    "auth_base",
		AuthCode: "code-base-1",
		ClientIP: "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.OpenID != "u1" || result.AccessToken != "t1" || result.RefreshToken != "r1" {
		t.Fatalf("结果字段错误: %+v", result)
	}
	if result.UserInfo != nil {
		t.Fatalf("auth_base 不应返回用户资料: %+v", result.UserInfo)
	}
	if result.SessionToken == "" {
		t.Fatal("未签发会话 token")
	}
	if len(env.enqueuer.payloads) != 0 {
		t.Fatalf("auth_base 不应入队刷新任务: %+v", env.enqueuer.payloads)
	}

	var user models.User
	if err := env.db.Where("open_id = ?", "u1").First(&user).Error; err != nil {
		t.Fatalf("用户未创建: %v", err)
	}
	var audit models.AuthCode
	if err := env.db.Where("auth_code = ?", "code-base-1").First(&audit).Error; err != nil {
		t.Fatalf("审计记录未创建: %v", err)
	}
	if audit.ExpiresIn != 3600 {
		t.Fatalf("expires_in 应为 3600: %d", audit.ExpiresIn)
	}
	if audit.ReExpiresIn != 1 {
		t.Fatalf("re_expires_in 缺失应钳到 1: %d", audit.ReExpiresIn)
	}
	if audit.ClientIP != "203.0.113.9" {
		t.Fatalf("client_ip 未记录: %q", audit.ClientIP)
	}
	if audit.Sign != "gateway-sign==" {
		t.Fatalf("网关签名未记录: %q", audit.Sign)
	}
}

func TestAuthWorkflowUserScopeEnqueuesRefresh(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	result, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode:  "demo",
		Scope:    "auth_user",
		AuthCode: "code-user-1",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.UserInfo == nil {
		t.Fatal("auth_user 应返回资料快照")
	}
	if len(env.enqueuer.payloads) != 1 {
		t.Fatalf("应入队 1 个刷新任务: %+v", env.enqueuer.payloads)
	}
	if env.enqueuer.payloads[0].AuthCode != "code-user-1" {
		t.Fatalf("任务载荷错误: %+v", env.enqueuer.payloads[0])
	}
	if env.enqueuer.payloads[0].UserID == 0 {
		t.Fatal("任务载荷缺少用户 ID")
	}
}

func TestAuthWorkflowIdempotentSecondCall(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	first, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_base", AuthCode: "code-idem-1",
	})
	if err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	second, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_base", AuthCode: "code-idem-1",
	})
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}
	if env.gateway.calls != 1 {
		t.Fatalf("幂等命中后不应再调网关，calls=%d", env.gateway.calls)
	}
	if second.SessionToken != first.SessionToken {
		t.Fatal("两次调用应返回同一会话")
	}
	var count int64
	if err := env.db.Model(&models.AuthCode{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("审计记录应只有 1 条: %d", count)
	}
}

func TestAuthWorkflowDurationClamping(t *testing.T) {
	cases := []struct {
		name      string
		expiresIn *int64
		want      int64
	}{
		{"nil", nil, 1},
		{"zero", i64Ptr(0), 1},
		{"negative", i64Ptr(-5), 1},
		{"positive", i64Ptr(3600), 3600},
	}
	for i, c := range cases {
		resp := successTokenResponse()
		resp.ExpiresIn = c.expiresIn
		env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: resp})
		code := fmt.Sprintf("code-clamp-%d", i)
		if _, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
			AppCode: "demo", Scope: "auth_base", AuthCode: code,
		}); err != nil {
			t.Fatalf("%s: upload failed: %v", c.name, err)
		}
		var audit models.AuthCode
		if err := env.db.Where("auth_code = ?", code).First(&audit).Error; err != nil {
			t.Fatalf("%s: audit missing: %v", c.name, err)
		}
		if audit.ExpiresIn != c.want {
			t.Fatalf("%s: expires_in=%d, want %d", c.name, audit.ExpiresIn, c.want)
		}
	}
}

func TestAuthWorkflowInvalidScope(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	_, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_everything", AuthCode: "code-x",
	})
	if !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("期望 ErrInvalidScope，得到: %v", err)
	}
	if env.gateway.calls != 0 {
		t.Fatalf("非法范围不应触发远程调用，calls=%d", env.gateway.calls)
	}
}

func TestAuthWorkflowMissingAuthCode(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	_, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_base", AuthCode: "   ",
	})
	if !errors.Is(err, ErrAuthCodeMissing) {
		t.Fatalf("期望 ErrAuthCodeMissing，得到: %v", err)
	}
	if env.gateway.calls != 0 {
		t.Fatalf("缺少授权码不应触发远程调用，calls=%d", env.gateway.calls)
	}
}

// racingUserRepo 查询永远未命中，在真实库上复现并发创建同一用户的竞争
type racingUserRepo struct {
	repository.UserRepository
}

func (racingUserRepo) GetByOpenID(openID string) (*models.User, error) {
	return nil, nil
}

func TestAuthWorkflowDuplicateUserCreate(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	// 先落库同 open_id 用户，模拟另一请求抢先完成插入
	if err := env.db.Create(&models.User{MiniProgramID: 1, OpenID: "u1"}).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	env.svc.userRepo = racingUserRepo{UserRepository: env.svc.userRepo}

	_, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_base", AuthCode: "code-race-1",
	})
	if !errors.Is(err, ErrDuplicateSubmit) {
		t.Fatalf("期望 ErrDuplicateSubmit，得到: %v", err)
	}
	if errors.Is(err, ErrGatewayTimeout) {
		t.Fatal("并发冲突不应与网关超时混淆")
	}
}

func TestDuplicateKeyErrClassification(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	repo := repository.NewUserRepository(env.db)
	if err := repo.Create(&models.User{MiniProgramID: 1, OpenID: "dup-1"}); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	err := repo.Create(&models.User{MiniProgramID: 1, OpenID: "dup-1"})
	if err == nil {
		t.Fatal("唯一索引冲突应当报错")
	}
	if !isDuplicateKeyErr(err) {
		t.Fatalf("唯一索引冲突未被识别: %v", err)
	}
	if isDuplicateKeyErr(fmt.Errorf("connection refused")) {
		t.Fatal("普通错误不应被识别为唯一索引冲突")
	}
}

func TestAuthWorkflowMiniProgramNotFound(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: successTokenResponse()})
	_, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "ghost", Scope: "auth_base", AuthCode: "code-x",
	})
	if !errors.Is(err, ErrMiniProgramNotFound) {
		t.Fatalf("期望 ErrMiniProgramNotFound，得到: %v", err)
	}
}

func TestAuthWorkflowGatewayTimeout(t *testing.T) {
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{err: fmt.Errorf("%w: dial timeout", alipay.ErrRequestTimeout)})
	_, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_base", AuthCode: "code-timeout",
	})
	if !errors.Is(err, ErrGatewayTimeout) {
		t.Fatalf("期望 ErrGatewayTimeout，得到: %v", err)
	}
}

func TestAuthWorkflowIncompleteExchange(t *testing.T) {
	resp := successTokenResponse()
	resp.AccessToken = nil
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: resp})
	_, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_base", AuthCode: "code-incomplete",
	})
	if !errors.Is(err, ErrExchangeIncomplete) {
		t.Fatalf("期望 ErrExchangeIncomplete，得到: %v", err)
	}
}

func TestAuthWorkflowBusinessCodePassThrough(t *testing.T) {
	// 非 10000 但字段齐全的响应按原样放行
	resp := successTokenResponse()
	resp.Code = strPtr("40004")
	env := setupAuthWorkflowTest(t, &stubOAuthGateway{resp: resp})
	result, err := env.svc.UploadAuthCode(context.Background(), UploadAuthCodeInput{
		AppCode: "demo", Scope: "auth_base", AuthCode: "code-soft-fail",
	})
	if err != nil {
		t.Fatalf("字段齐全的业务失败不应报错: %v", err)
	}
	if result.AccessToken != "t1" {
		t.Fatalf("令牌应透传: %+v", result)
	}
}
