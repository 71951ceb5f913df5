package provider

import (
	"github.com/alimini-next/internal/cache"
	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/queue"
	"github.com/alimini-next/internal/repository"
	"github.com/alimini-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	MiniProgramRepo     repository.MiniProgramRepository
	UserRepo            repository.UserRepository
	MemberRepo          repository.MemberRepository
	PhoneRepo           repository.PhoneRepository
	AuthCodeRepo        repository.AuthCodeRepository
	FormIDRepo          repository.FormIDRepository
	TemplateMessageRepo repository.TemplateMessageRepository

	// Services
	SessionService         *service.SessionService
	AuthWorkflowService    *service.AuthWorkflowService
	UserInfoService        *service.UserInfoService
	FormIDService          *service.FormIDService
	PhoneService           *service.PhoneService
	TemplateMessageService *service.TemplateMessageService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.MiniProgramRepo = repository.NewMiniProgramRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.MemberRepo = repository.NewMemberRepository(db)
	c.PhoneRepo = repository.NewPhoneRepository(db)
	c.AuthCodeRepo = repository.NewAuthCodeRepository(db)
	c.FormIDRepo = repository.NewFormIDRepository(db)
	c.TemplateMessageRepo = repository.NewTemplateMessageRepository(db)
}

func (c *Container) initServices() {
	c.SessionService = service.NewSessionService(c.Config, c.MemberRepo, c.PhoneRepo)
	c.AuthWorkflowService = service.NewAuthWorkflowService(
		c.Config,
		c.MiniProgramRepo,
		c.UserRepo,
		c.AuthCodeRepo,
		c.PhoneRepo,
		c.SessionService,
		service.AlipayOAuthGateway{},
		cache.NewRedisLocker(),
		cache.NewRedisIdempotencyCache(),
		c.QueueClient,
	)
	c.UserInfoService = service.NewUserInfoService(c.Config, c.UserRepo, c.MiniProgramRepo, c.AuthCodeRepo, service.AlipayUserInfoGateway{})
	c.FormIDService = service.NewFormIDService(c.FormIDRepo)
	c.PhoneService = service.NewPhoneService(c.MiniProgramRepo, c.UserRepo, c.PhoneRepo, c.MemberRepo)
	c.TemplateMessageService = service.NewTemplateMessageService(c.Config, c.TemplateMessageRepo, c.MiniProgramRepo, service.AlipayTemplateSender{})
}
