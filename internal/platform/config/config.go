package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Streak   StreakConfig   `mapstructure:"streak"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	// Driver 取值 sqlite 或 postgres
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// MaxRetries 是一次事务在乐观并发冲突时的最大尝试次数
	MaxRetries int         `mapstructure:"maxRetries"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置。Redis只用作今日快照的读缓存，可以关闭。
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 定义了日志配置
type LogConfig struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

// AuthConfig 定义了访问令牌的校验配置。
// JWTSecret 为空时退化为信任 X-User-ID 请求头，仅用于开发环境。
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

// EngineConfig 定义了日期划分相关的配置
type EngineConfig struct {
	// Timezone 决定“今天”从何时开始，例如 Asia/Shanghai
	Timezone string `mapstructure:"timezone"`
}

// StreakConfig 定义了连续打卡的规则
type StreakConfig struct {
	Threshold      int64         `mapstructure:"threshold"`
	BadgeEvery     int           `mapstructure:"badgeEvery"`
	RepairInterval time.Duration `mapstructure:"repairInterval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "fitlog.db?_busy_timeout=5000&_journal_mode=WAL")
	v.SetDefault("database.maxRetries", 5)
	v.SetDefault("database.redis.enabled", false)
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("log.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("engine.timezone", "Local")
	v.SetDefault("streak.threshold", 10)
	v.SetDefault("streak.badgeEvery", 7)
	v.SetDefault("streak.repairInterval", 10*time.Minute)
}

// LoadConfig 负责查找、加载和解析配置。
// 顺序：.env（可选） -> config.yaml（可选） -> 环境变量覆盖，最后做合法性检查。
func LoadConfig(paths ...string) (*Config, error) {
	// .env 只用于本地开发，不存在时静默跳过
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 允许通过环境变量覆盖配置，例如 DATABASE_DRIVER=postgres
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置项的取值范围
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Database.MaxRetries < 1 {
		return fmt.Errorf("database.maxRetries 必须大于0，当前为 %d", c.Database.MaxRetries)
	}
	if c.Streak.Threshold < 1 {
		return fmt.Errorf("streak.threshold 必须大于0，当前为 %d", c.Streak.Threshold)
	}
	if c.Streak.BadgeEvery < 1 {
		return fmt.Errorf("streak.badgeEvery 必须大于0，当前为 %d", c.Streak.BadgeEvery)
	}
	if c.Streak.RepairInterval <= 0 {
		return fmt.Errorf("streak.repairInterval 必须为正数")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location 返回 engine.timezone 对应的时区
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" || c.Engine.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 '%s': %w", c.Engine.Timezone, err)
	}
	return loc, nil
}
