package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alimini-next/internal/alipay"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type stubUserInfoGateway struct {
	calls int
	resp  *alipay.UserInfoResponse
	err   error
}

func (g *stubUserInfoGateway) FetchUserInfo(ctx context.Context, cfg *alipay.Config, authToken string) (*alipay.UserInfoResponse, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func setupUserInfoTest(t *testing.T, gateway *stubUserInfoGateway) (*UserInfoService, *gorm.DB, *models.User) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_info_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.MiniProgram{}, &models.User{}, &models.AuthCode{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	mp := models.MiniProgram{Code: "demo", Name: "演示小程序", AppID: "2021000000000001", PrivateKey: "key"}
	if err := db.Create(&mp).Error; err != nil {
		t.Fatalf("seed mini program failed: %v", err)
	}
	user := models.User{MiniProgramID: mp.ID, OpenID: "open-1"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	userID := user.ID
	audit := models.AuthCode{
		MiniProgramID:  mp.ID,
		UserID:         &userID,
		AuthCode:       "code-refresh-1",
		Scope:          "auth_user",
		ExternalUserID: "u1",
		OpenID:         "open-1",
		AccessToken:    "t1",
		RefreshToken:   "r1",
		ExpiresIn:      3600,
		ReExpiresIn:    3600,
	}
	if err := db.Create(&audit).Error; err != nil {
		t.Fatalf("seed auth code failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Alipay.GatewayURL = "https://openapi.alipay.com/gateway.do"
	svc := NewUserInfoService(
		cfg,
		repository.NewUserRepository(db),
		repository.NewMiniProgramRepository(db),
		repository.NewAuthCodeRepository(db),
		gateway,
	)
	return svc, db, &user
}

func TestRefreshUserInfoUpdatesProfile(t *testing.T) {
	gateway := &stubUserInfoGateway{resp: &alipay.UserInfoResponse{
		Code:     strPtr("10000"),
		NickName: strPtr("小明"),
		Avatar:   strPtr("https://cdn.example.com/a.png"),
		Province: strPtr("浙江"),
		City:     strPtr("杭州"),
		Gender:   strPtr("F"),
	}}
	svc, db, user := setupUserInfoTest(t, gateway)

	if err := svc.RefreshUserInfo(context.Background(), user.ID, "code-refresh-1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if stored.Nickname != "小明" || stored.AvatarURL != "https://cdn.example.com/a.png" {
		t.Fatalf("资料未更新: %+v", stored)
	}
	if stored.Province != "浙江" || stored.City != "杭州" {
		t.Fatalf("地域未更新: %+v", stored)
	}
	if stored.Gender != "f" {
		t.Fatalf("性别应归一为小写: %q", stored.Gender)
	}
	if stored.LastInfoUpdateAt == nil {
		t.Fatal("last_info_update_at 未写入")
	}
}

func TestRefreshUserInfoUserNotFound(t *testing.T) {
	gateway := &stubUserInfoGateway{resp: &alipay.UserInfoResponse{Code: strPtr("10000")}}
	svc, _, _ := setupUserInfoTest(t, gateway)

	err := svc.RefreshUserInfo(context.Background(), 9999, "code-refresh-1")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("期望 ErrUserNotFound，得到: %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("用户缺失不应调网关，calls=%d", gateway.calls)
	}
}

func TestRefreshUserInfoSkipWithoutToken(t *testing.T) {
	gateway := &stubUserInfoGateway{resp: &alipay.UserInfoResponse{Code: strPtr("10000")}}
	svc, _, user := setupUserInfoTest(t, gateway)

	if err := svc.RefreshUserInfo(context.Background(), user.ID, "code-unknown"); err != nil {
		t.Fatalf("无审计记录应静默跳过: %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("无 access_token 不应调网关，calls=%d", gateway.calls)
	}
}

func TestRefreshUserInfoBusinessRejectKeepsProfile(t *testing.T) {
	gateway := &stubUserInfoGateway{resp: &alipay.UserInfoResponse{
		Code:   strPtr("40006"),
		SubMsg: strPtr("权限不足"),
	}}
	svc, db, user := setupUserInfoTest(t, gateway)

	if err := svc.RefreshUserInfo(context.Background(), user.ID, "code-refresh-1"); err != nil {
		t.Fatalf("业务拒绝不应报错: %v", err)
	}
	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if stored.Nickname != "" || stored.LastInfoUpdateAt != nil {
		t.Fatalf("业务拒绝不应回写资料: %+v", stored)
	}
}

func TestRefreshUserInfoTransportErrorPropagates(t *testing.T) {
	gateway := &stubUserInfoGateway{err: errors.New("connection reset")}
	svc, _, user := setupUserInfoTest(t, gateway)

	if err := svc.RefreshUserInfo(context.Background(), user.ID, "code-refresh-1"); err == nil {
		t.Fatal("传输失败应上抛以便重试")
	}
}
