package miniapp

import (
	"github.com/alimini-next/internal/http/response"
	"github.com/alimini-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadPhoneRequest 手机号上报请求
type UploadPhoneRequest struct {
	EncryptedData string `json:"encrypted_data" binding:"required"`
}

var uploadPhoneErrorRules = []mappedHandlerError{
	{target: service.ErrUserNotFound, code: response.CodeNotFound},
	{target: service.ErrMiniProgramNotFound, code: response.CodeNotFound},
	{target: service.ErrEncryptKeyMissing, code: response.CodeBadRequest},
	{target: service.ErrPayloadDecrypt, code: response.CodeBadRequest},
	{target: service.ErrMobileMissing, code: response.CodeBadRequest},
	{target: service.ErrDuplicateSubmit, code: response.CodeBadRequest},
}

// UploadPhoneNumber 上报加密手机号并绑定到当前会员
func (h *Handler) UploadPhoneNumber(c *gin.Context) {
	var req UploadPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}

	member, err := h.MemberRepo.GetByID(memberID)
	if err != nil {
		respondError(c, response.CodeInternal, "会员查询失败", err)
		return
	}
	if member == nil {
		respondError(c, response.CodeUnauthorized, service.ErrMemberNotFound.Error(), nil)
		return
	}

	result, err := h.PhoneService.UploadPhoneNumber(member, req.EncryptedData)
	if err != nil {
		respondWithMappedError(c, err, uploadPhoneErrorRules, response.CodeInternal, "手机号绑定失败")
		return
	}

	response.Success(c, result)
}

// ListMyPhones 获取当前用户绑定过的手机号
func (h *Handler) ListMyPhones(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	phones, err := h.PhoneService.ListPhones(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "手机号查询失败", err)
		return
	}

	response.Success(c, gin.H{"phones": phones})
}
