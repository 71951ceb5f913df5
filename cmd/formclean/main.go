package main

import (
	"fmt"

	"github.com/alimini-next/internal/config"
	"github.com/alimini-next/internal/logger"
	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"
	"github.com/alimini-next/internal/service"
)

// formclean 执行一次过期 formId 清理，适合由 cron 定时调用。
func main() {
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

	svc := service.NewFormIDService(repository.NewFormIDRepository(models.DB))
	count, err := svc.SweepExpired()
	if err != nil {
		stdLog.Fatalf("formId 清理失败: %v", err)
	}

	logger.Infow("formid_sweep_done", "deleted", count)
	fmt.Printf("已清理过期 formId %d 条\n", count)
}
