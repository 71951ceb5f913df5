package miniapp

import (
	"github.com/alimini-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		respondError(c, response.CodeUnauthorized, "未登录或会话已过期", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			respondError(c, response.CodeBadRequest, "会话标识无效", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			respondError(c, response.CodeBadRequest, "会话标识无效", nil)
			return 0, false
		}
		return uint(v), true
	default:
		respondError(c, response.CodeInternal, "会话标识类型错误", nil)
		return 0, false
	}
}

func getMemberID(c *gin.Context) (uint, bool) {
	return getContextUint(c, "member_id")
}

func getUserID(c *gin.Context) (uint, bool) {
	return getContextUint(c, "user_id")
}
