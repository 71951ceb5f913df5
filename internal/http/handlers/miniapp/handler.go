package miniapp

import "github.com/alimini-next/internal/provider"

// Handler 小程序侧 API 处理器入口
type Handler struct {
	*provider.Container
}

// New 创建小程序处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
