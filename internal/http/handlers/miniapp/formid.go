package miniapp

import (
	"github.com/alimini-next/internal/http/response"
	"github.com/alimini-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SaveFormIDRequest formId 上报请求
type SaveFormIDRequest struct {
	MiniProgramID uint   `json:"mini_program_id"`
	FormID        string `json:"form_id" binding:"required"`
}

// SaveFormID 保存当前用户上报的 formId
func (h *Handler) SaveFormID(c *gin.Context) {
	var req SaveFormIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "用户查询失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, service.ErrUserNotFound.Error(), nil)
		return
	}

	miniProgramID := req.MiniProgramID
	if miniProgramID == 0 {
		miniProgramID = user.MiniProgramID
	}
	record, err := h.FormIDService.Issue(miniProgramID, user.ID, req.FormID)
	if err != nil {
		respondError(c, response.CodeInternal, "formId 保存失败", err)
		return
	}

	response.Success(c, gin.H{
		"id":        record.ID,
		"expire_at": record.ExpireAt,
	})
}
