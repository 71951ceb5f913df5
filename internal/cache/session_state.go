package cache

import (
	"context"
	"fmt"
	"time"
)

// MemberAuthState 会员会话状态快照
type MemberAuthState struct {
	Status string `json:"status"` // 账号状态
}

const memberAuthStateTTL = 30 * time.Minute

func memberAuthStateKey(memberID uint) string {
	return fmt.Sprintf("member-auth-state:%d", memberID)
}

// SetMemberAuthState 写入会员状态快照
func SetMemberAuthState(ctx context.Context, memberID uint, state MemberAuthState) error {
	return SetJSON(ctx, memberAuthStateKey(memberID), state, memberAuthStateTTL)
}

// GetMemberAuthState 读取会员状态快照；未命中返回 (nil, nil)
func GetMemberAuthState(ctx context.Context, memberID uint) (*MemberAuthState, error) {
	var state MemberAuthState
	hit, err := GetJSON(ctx, memberAuthStateKey(memberID), &state)
	if err != nil || !hit {
		return nil, err
	}
	return &state, nil
}

// DelMemberAuthState 清除会员状态快照
func DelMemberAuthState(ctx context.Context, memberID uint) error {
	return Del(ctx, memberAuthStateKey(memberID))
}
