package config

import (
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Authz      AuthzConfig      `mapstructure:"authz"`
	Security   SecurityConfig   `mapstructure:"security"`
	Commission CommissionConfig `mapstructure:"commission"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Service    string `mapstructure:"service"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Service:    c.Service,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// JWTConfig 管理端 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// AuthzConfig 管理端授权配置
type AuthzConfig struct {
	// OperatorRoles 操作人初始角色，仅在操作人尚无角色时写入
	OperatorRoles map[string][]string `mapstructure:"operator_roles"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	TrackRateLimit RateLimitConfig `mapstructure:"track_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// CommissionConfig 佣金引擎配置
type CommissionConfig struct {
	MultiTier            bool                    `mapstructure:"multi_tier"`
	Calculation          string                  `mapstructure:"calculation"`
	Rate                 float64                 `mapstructure:"rate"`
	Minimum              float64                 `mapstructure:"minimum"`
	Maximum              float64                 `mapstructure:"maximum"`
	Tiers                []CommissionTierConfig  `mapstructure:"tiers"`
	VolumeBonuses        []VolumeBonusRuleConfig `mapstructure:"volume_bonuses"`
	Ledger               CommissionLedgerConfig  `mapstructure:"ledger"`
	StatsCacheTTLSeconds int                     `mapstructure:"stats_cache_ttl_seconds"`
}

// CommissionTierConfig 佣金等级配置
type CommissionTierConfig struct {
	Level int      `mapstructure:"level"`
	Rate  float64  `mapstructure:"rate"`
	Name  string   `mapstructure:"name"`
	Bonus *float64 `mapstructure:"bonus"`
}

// VolumeBonusRuleConfig 销量奖励规则配置
type VolumeBonusRuleConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Bonus     float64 `mapstructure:"bonus"`
}

// CommissionLedgerConfig 佣金账本配置
type CommissionLedgerConfig struct {
	Driver string `mapstructure:"driver"` // memory / database
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	cfg, err := readConfig(viper.GetViper())
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// LoadFile 从指定文件加载配置（路径为空时仅使用默认值与环境变量）
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		v.SetConfigFile(trimmed)
	}
	return readConfig(v)
}

func readConfig(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// 环境变量支持（例如 commission.rate -> COMMISSION_RATE）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.service", "commission-engine")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "commission.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/commission.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "aff")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("authz.operator_roles", map[string][]string{
		"ops": {"commission_admin"},
	})
	v.SetDefault("security.track_rate_limit.window_seconds", 60)
	v.SetDefault("security.track_rate_limit.max_requests", 120)
	v.SetDefault("commission.multi_tier", false)
	v.SetDefault("commission.calculation", "percentage")
	v.SetDefault("commission.rate", 10)
	v.SetDefault("commission.minimum", 0)
	v.SetDefault("commission.maximum", 100)
	v.SetDefault("commission.tiers", []map[string]interface{}{
		{"level": 1, "rate": 10, "name": "Bronze"},
		{"level": 2, "rate": 15, "name": "Silver"},
		{"level": 3, "rate": 20, "name": "Gold"},
	})
	v.SetDefault("commission.volume_bonuses", []map[string]interface{}{
		{"threshold": 1000, "bonus": 2},
		{"threshold": 5000, "bonus": 5},
		{"threshold": 10000, "bonus": 10},
	})
	v.SetDefault("commission.ledger.driver", "memory")
	v.SetDefault("commission.stats_cache_ttl_seconds", 30)
}
