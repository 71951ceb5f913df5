package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alimini-next/internal/cache"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// SessionService 会员会话服务
type SessionService struct {
	cfg        *config.Config
	memberRepo repository.MemberRepository
	phoneRepo  repository.PhoneRepository
}

// NewSessionService 创建会话服务
func NewSessionService(cfg *config.Config, memberRepo repository.MemberRepository, phoneRepo repository.PhoneRepository) *SessionService {
	return &SessionService{
		cfg:        cfg,
		memberRepo: memberRepo,
		phoneRepo:  phoneRepo,
	}
}

// SessionClaims 会话 JWT 声明
type SessionClaims struct {
	MemberID uint   `json:"member_id"`
	UserID   uint   `json:"user_id"`
	OpenID   string `json:"open_id"`
	jwt.RegisteredClaims
}

// ResolveMember 获取或创建用户对应的会员，新建时带入最近绑定的手机号
func (s *SessionService) ResolveMember(user *models.User) (*models.Member, error) {
	member, err := s.memberRepo.GetByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return member, nil
	}

	mobile := ""
	binding, err := s.phoneRepo.LatestBindingByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	if binding != nil {
		phone, err := s.phoneRepo.GetByID(binding.PhoneID)
		if err != nil {
			return nil, err
		}
		if phone != nil {
			mobile = phone.Number
		}
	}

	member = &models.Member{UserID: user.ID, Mobile: mobile, Status: "active"}
	if err := s.memberRepo.Create(member); err != nil {
		if isDuplicateKeyErr(err) {
			// 并发创建，改读已有记录
			existing, getErr := s.memberRepo.GetByUserID(user.ID)
			if getErr != nil {
				return nil, getErr
			}
			if existing != nil {
				return existing, nil
			}
			return nil, ErrDuplicateSubmit
		}
		return nil, err
	}
	return member, nil
}

// IssueToken 为会员签发会话 JWT
func (s *SessionService) IssueToken(ctx context.Context, member *models.Member, user *models.User) (string, time.Time, error) {
	expireHours := s.cfg.SessionJWT.ExpireHours
	if expireHours <= 0 {
		expireHours = 720
	}
	expiresAt := time.Now().Add(time.Duration(expireHours) * time.Hour)
	claims := SessionClaims{
		MemberID: member.ID,
		UserID:   user.ID,
		OpenID:   user.OpenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SessionJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	_ = cache.SetMemberAuthState(ctx, member.ID, cache.MemberAuthState{Status: member.Status})
	return tokenString, expiresAt, nil
}

// ParseToken 解析会话 JWT
func (s *SessionService) ParseToken(tokenString string) (*SessionClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &SessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SessionJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// VerifyMember 校验会话对应的会员状态
func (s *SessionService) VerifyMember(ctx context.Context, claims *SessionClaims) (*models.Member, error) {
	if state, err := cache.GetMemberAuthState(ctx, claims.MemberID); err == nil && state != nil {
		if state.Status != "active" {
			return nil, ErrMemberDisabled
		}
	}
	member, err := s.memberRepo.GetByID(claims.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.Status != "active" {
		return nil, ErrMemberDisabled
	}
	return member, nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint") ||
		strings.Contains(err.Error(), "duplicate key")
}
