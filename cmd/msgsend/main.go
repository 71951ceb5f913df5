package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"
	"github.com/alimini-next/internal/service"
)

// msgsend 手动触发一批模板消息投递，单条失败不会中断批次。
func main() {
	var limit int
	flag.IntVar(&limit, "limit", 10, "本次最多投递的待发送消息条数")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	svc := service.NewTemplateMessageService(
		cfg,
		repository.NewTemplateMessageRepository(models.DB),
		repository.NewMiniProgramRepository(models.DB),
		service.AlipayTemplateSender{},
	)
	sent, err := svc.SendPending(context.Background(), limit)
	if err != nil {
		stdLog.Fatalf("模板消息投递失败: %v", err)
	}

	logger.Infow("template_message_batch_done", "sent", sent, "limit", limit)
	fmt.Printf("本批成功投递模板消息 %d 条\n", sent)
}
