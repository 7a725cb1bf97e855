// Package config 负责加载和管理组织架构同步工具的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingDSN 表示没有配置数据库连接串，同步在任何写操作之前即终止。
var ErrMissingDSN = errors.New("database dsn is not configured (set DATABASE_URL)")

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	// SQL 为 true 时通过 zapgorm2 输出每条 SQL
	SQL bool `mapstructure:"sql"`
}

type DatabaseConfig struct {
	DSN         string      `mapstructure:"dsn"`
	AutoMigrate bool        `mapstructure:"auto_migrate"`
	Redis       RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SyncConfig 存储同步流程相关的配置。
type SyncConfig struct {
	// ExtraRoles 追加到白名单中的角色，它们没有显式映射，统一落到默认职位。
	ExtraRoles []string      `mapstructure:"extra_roles"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
	ChartFile  string        `mapstructure:"chart_file"`
}

// Load 读取配置：先加载默认值，再读取可选的 YAML 文件，最后由环境变量覆盖。
// 配置文件不存在时不报错，此时完全依赖环境变量（例如 DATABASE_URL）。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.dsn", "DATABASE_URL", "DATABASE_DSN")
	_ = v.BindEnv("database.redis.addr", "REDIS_ADDR")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		// SetConfigFile 指定的文件不存在时 viper 返回 *fs.PathError，而不是 ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	conf.Database.DSN = strings.TrimSpace(conf.Database.DSN)
	return &conf, nil
}

// Validate 检查必填项。
func (c *Config) Validate() error {
	if c == nil || c.Database.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.sql", false)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("sync.lock_ttl", 10*time.Minute)
}
