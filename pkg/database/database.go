// Package database 提供 GORM 连接的打开、迁移与关闭。
// 连接句柄由调用方显式持有并在进程结束前关闭，不再使用全局 DB 变量。
package database

import (
	"dms_orgsync/internal/model"
	"dms_orgsync/pkg/log"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options 控制连接行为。
type Options struct {
	// LogSQL 为 true 时以 Info 级别输出全部 SQL，否则只记录慢查询和错误
	LogSQL bool
}

// DriverFor 根据 DSN 形态选择驱动：postgres:// / postgresql:// 或 key=value 形式走 PostgreSQL，其余按 MySQL 处理。
func DriverFor(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(lower, "host=") || strings.Contains(lower, " dbname="):
		return DriverPostgres
	default:
		return DriverMySQL
	}
}

// Open 根据 DSN 打开数据库并配置连接池。
// 同步流程是单连接顺序执行，这里把池子压到很小。
func Open(dsn string, opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch DriverFor(dsn) {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		dialector = mysql.Open(dsn)
	}

	gormLogger := zapgorm2.New(log.GetLogger())
	gormLogger.IgnoreRecordNotFoundError = true
	gormLogger.SlowThreshold = 500 * time.Millisecond
	level := logger.Warn
	if opts.LogSQL {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Infow("Database connected", "driver", DriverFor(dsn))
	return db, nil
}

// Close 释放底层连接，nil 安全。
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("Failed to get SQL DB on close", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("Failed to close database", err)
	}
}

// RunMigrate 只迁移本工具拥有的表；users 表归账号子系统所有，不在这里改动。
func RunMigrate(db *gorm.DB) error {
	log.Info("Running migrations...")

	if err := db.AutoMigrate(
		&model.OrgPosition{},
		&model.Employee{},
	); err != nil {
		log.Errorf("Failed to run migrations: %v", err)
		return err
	}

	log.Info("Migrations completed successfully")
	return nil
}
