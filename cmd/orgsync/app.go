package main

import (
	"context"
	"fmt"

	"dms_orgsync/internal/config"
	"dms_orgsync/internal/repository"
	"dms_orgsync/internal/service"
	"dms_orgsync/pkg/database"
	"dms_orgsync/pkg/log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const runLockKey = "dms:orgsync:lock"

// app 持有一次命令执行期间的全部资源，close 时按相反顺序释放。
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client

	sync  service.OrgSyncService
	chart service.OrgChartService
	lock  service.RunLock
}

// newApp 加载配置、初始化日志并连接数据库。
// 配置校验在任何连接建立之前完成，缺少 DSN 时直接返回错误。
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database.DSN, database.Options{LogSQL: cfg.Log.SQL})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, lock: service.NoopRunLock{}}

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrate(db); err != nil {
			a.close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if addr := cfg.Database.Redis.Addr; addr != "" {
		rdb, err := database.NewRedis(ctx, addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = rdb
		a.lock = service.NewRedisRunLock(rdb, runLockKey, cfg.Sync.LockTTL)
	} else {
		log.Warnf("Redis is not configured, running without the run lock")
	}

	userRepo := repository.NewUserRepository(db)
	positionRepo := repository.NewOrgPositionRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)

	policy := service.DefaultRolePolicy()
	if len(cfg.Sync.ExtraRoles) > 0 {
		policy = policy.WithExtraRoles(cfg.Sync.ExtraRoles...)
	}
	a.sync = service.NewOrgSyncService(userRepo, positionRepo, employeeRepo, policy)
	a.chart = service.NewOrgChartService(employeeRepo, positionRepo)
	return a, nil
}

// exclusive 在运行锁保护下执行会写 employees 表的操作。
func (a *app) exclusive(ctx context.Context, fn func() error) error {
	return service.RunExclusive(ctx, a.lock, fn)
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error("Failed to close redis", err)
		}
	}
	database.Close(a.db)
}
