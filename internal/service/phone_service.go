package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alimini-next/internal/alipay"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"
)

// PhoneService 手机号上报与绑定
type PhoneService struct {
	miniProgramRepo repository.MiniProgramRepository
	userRepo        repository.UserRepository
	phoneRepo       repository.PhoneRepository
	memberRepo      repository.MemberRepository
}

// NewPhoneService 创建手机号服务
func NewPhoneService(
	miniProgramRepo repository.MiniProgramRepository,
	userRepo repository.UserRepository,
	phoneRepo repository.PhoneRepository,
	memberRepo repository.MemberRepository,
) *PhoneService {
	return &PhoneService{
		miniProgramRepo: miniProgramRepo,
		userRepo:        userRepo,
		phoneRepo:       phoneRepo,
		memberRepo:      memberRepo,
	}
}

// UploadPhoneResult 手机号上报结果
type UploadPhoneResult struct {
	UserID      uint   `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
}

// UploadPhoneNumber 解密加密数据并绑定手机号，同步写入会员的 mobile 字段
func (s *PhoneService) UploadPhoneNumber(member *models.Member, encryptedPayload string) (*UploadPhoneResult, error) {
	user, err := s.userRepo.GetByID(member.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	mp, err := s.miniProgramRepo.GetByID(user.MiniProgramID)
	if err != nil {
		return nil, err
	}
	if mp == nil {
		return nil, ErrMiniProgramNotFound
	}
	if strings.TrimSpace(mp.EncryptKey) == "" {
		return nil, ErrEncryptKeyMissing
	}

	plain, err := alipay.DecryptPayload(mp.EncryptKey, encryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadDecrypt, err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("%w: 明文不是合法 JSON", ErrPayloadDecrypt)
	}
	mobile := normalizeMobile(payload["mobile"])
	if mobile == "" {
		return nil, ErrMobileMissing
	}

	phone, err := s.phoneRepo.GetByNumber(mobile)
	if err != nil {
		return nil, err
	}
	if phone == nil {
		phone = &models.Phone{Number: mobile}
		if err := s.phoneRepo.Create(phone); err != nil {
			if !isDuplicateKeyErr(err) {
				return nil, err
			}
			phone, err = s.phoneRepo.GetByNumber(mobile)
			if err != nil {
				return nil, err
			}
			if phone == nil {
				return nil, ErrDuplicateSubmit
			}
		}
	}
	binding := &models.UserPhoneBinding{
		UserID:     user.ID,
		PhoneID:    phone.ID,
		VerifiedAt: time.Now(),
	}
	if err := s.phoneRepo.CreateBinding(binding); err != nil {
		return nil, err
	}

	member.Mobile = mobile
	if err := s.memberRepo.Update(member); err != nil {
		return nil, err
	}
	logger.Infow("phone_number_bound", "user_id", user.ID, "member_id", member.ID)
	return &UploadPhoneResult{UserID: user.ID, PhoneNumber: mobile}, nil
}

// ListPhones 获取用户绑定过的全部手机号
func (s *PhoneService) ListPhones(userID uint) ([]string, error) {
	return s.phoneRepo.ListNumbersByUserID(userID)
}

func normalizeMobile(value interface{}) string {
	str, ok := value.(string)
	if !ok {
		return ""
	}
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(str))
	return cleaned
}
