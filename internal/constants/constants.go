package constants

// 授权范围常量
const (
	ScopeAuthBase = "auth_base"
	ScopeAuthUser = "auth_user"
)

// 性别常量
const (
	GenderUnknown = ""
	GenderMale    = "m"
	GenderFemale  = "f"
)

// FormId 生命周期常量
const (
	FormIDMaxUseCount    = 3
	FormIDSweepGraceDays = 7
)

// 支付宝网关常量
const (
	AlipayResponseSuccessCode = "10000"
	AlipaySignTypeRSA2        = "RSA2"
	AlipaySignTypeRSA         = "RSA"
)

// 支付宝接口方法常量
const (
	AlipayMethodOAuthToken     = "alipay.system.oauth.token"
	AlipayMethodUserInfoShare  = "alipay.user.info.share"
	AlipayMethodTplMessageSend = "alipay.open.app.mini.templatemessage.send"
)

// 队列常量
const (
	QueueDefault        = "default"
	TaskUserInfoRefresh = "user_info:refresh"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "amp"
)

// 缓存键前缀常量
const (
	AuthLockKeyPrefix       = "workflow:"
	AuthIdempotentKeyPrefix = "workflow-idempotent:"
)
