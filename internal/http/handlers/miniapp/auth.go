package miniapp

import (
	"github.com/alimini-next/internal/http/response"
	"github.com/alimini-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadAuthCodeRequest 授权码上报请求
type UploadAuthCodeRequest struct {
	AppCode  string `json:"app_code" binding:"required"`
	Scope    string `json:"scope" binding:"required"`
	AuthCode string `json:"auth_code" binding:"required"`
}

var uploadAuthCodeErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidScope, code: response.CodeBadRequest},
	{target: service.ErrAuthCodeMissing, code: response.CodeBadRequest},
	{target: service.ErrMiniProgramNotFound, code: response.CodeNotFound},
	{target: service.ErrExchangeIncomplete, code: response.CodeBadRequest},
	{target: service.ErrDuplicateSubmit, code: response.CodeBadRequest},
	{target: service.ErrLockBusy, code: response.CodeTooManyRequests},
	{target: service.ErrGatewayTimeout, code: response.CodeInternal},
}

// UploadAuthCode 上报授权码并换取会话
func (h *Handler) UploadAuthCode(c *gin.Context) {
	var req UploadAuthCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	result, err := h.AuthWorkflowService.UploadAuthCode(c.Request.Context(), service.UploadAuthCodeInput{
		AppCode:  req.AppCode,
		Scope:    req.Scope,
		AuthCode: req.AuthCode,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		respondWithMappedError(c, err, uploadAuthCodeErrorRules, response.CodeInternal, "授权失败，请稍后再试")
		return
	}

	response.Success(c, result)
}
