package service

import "errors"

// 服务层业务错误，处理器用 errors.Is 映射为响应
var (
	ErrInvalidScope        = errors.New("不支持的授权范围")
	ErrAuthCodeMissing     = errors.New("授权码不能为空")
	ErrMiniProgramNotFound = errors.New("小程序配置不存在")
	ErrUserNotFound        = errors.New("未找到对应用户")
	ErrMemberNotFound      = errors.New("会员不存在")
	ErrMemberDisabled      = errors.New("账号已被禁用")
	ErrGatewayTimeout      = errors.New("服务繁忙，请稍后再试")
	ErrDuplicateSubmit     = errors.New("请求重复提交，请重试")
	ErrExchangeIncomplete  = errors.New("换票结果缺少必要字段")
	ErrEncryptKeyMissing   = errors.New("小程序未配置解密密钥")
	ErrPayloadDecrypt      = errors.New("加密数据解析失败")
	ErrMobileMissing       = errors.New("解密数据缺少手机号")
	ErrLockBusy            = errors.New("操作过于频繁，请稍后再试")
	ErrInvalidToken        = errors.New("无效的 token")
)
