// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 存储驱动
const (
	StorageMemory   = "memory"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// AI 服务提供方
const (
	ProviderOpenAI    = "openai" // OpenAI 兼容的 chat completions 接口（默认 Together）
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config 是应用程序的根配置结构
// 包含所有子配置模块
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Storage  StorageConfig  `mapstructure:"storage"`  // 消息存储配置
	MySQL    MySQLConfig    `mapstructure:"mysql"`    // MySQL 配置
	Postgres PostgresConfig `mapstructure:"postgres"` // PostgreSQL 配置
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`   // SQLite 配置
	Redis    RedisConfig    `mapstructure:"redis"`    // Redis 配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	AI       AIConfig       `mapstructure:"ai"`       // AI 服务配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`             // 监听端口，默认 5000
	Mode            string        `mapstructure:"mode"`             // 运行模式: debug / release
	CORS            []string      `mapstructure:"cors"`             // CORS 允许的域名
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // 读超时
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`    // 写超时，需大于 AI 调用超时
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 优雅关闭等待时间
}

// StorageConfig 消息存储配置
type StorageConfig struct {
	Driver       string `mapstructure:"driver"`         // memory / mysql / postgres / sqlite
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int    `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
}

// MySQLConfig MySQL 数据库连接配置
type MySQLConfig struct {
	Host     string `mapstructure:"host"`     // 数据库主机地址
	Port     int    `mapstructure:"port"`     // 数据库端口
	Username string `mapstructure:"username"` // 数据库用户名
	Password string `mapstructure:"password"` // 数据库密码
	Database string `mapstructure:"database"` // 数据库名称
	Charset  string `mapstructure:"charset"`  // 字符集
}

// DSN 构建 MySQL 连接串
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.Charset,
	)
}

// PostgresConfig PostgreSQL 连接配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"` // 如 host=localhost user=chat dbname=chat sslmode=disable
}

// SQLiteConfig SQLite 配置
type SQLiteConfig struct {
	Path string `mapstructure:"path"` // 数据库文件路径
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`   // 是否通过 Redis 广播消息事件
	Host     string `mapstructure:"host"`      // Redis 主机地址
	Port     int    `mapstructure:"port"`      // Redis 端口
	Username string `mapstructure:"username"`  // Redis 用户名
	Password string `mapstructure:"password"`  // Redis 密码
	DB       int    `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int    `mapstructure:"pool_size"` // 连接池大小
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`    // openai / anthropic / gemini / mock
	APIKey      string        `mapstructure:"api_key"`     // 服务商 API Key
	BaseURL     string        `mapstructure:"base_url"`    // 接口地址，留空使用各服务商默认值
	Model       string        `mapstructure:"model"`       // 模型名称
	MaxTokens   int           `mapstructure:"max_tokens"`  // 最大生成 token 数
	Temperature float64       `mapstructure:"temperature"` // 采样温度
	Timeout     time.Duration `mapstructure:"timeout"`     // 单次调用超时
}

// Load 从指定路径加载配置文件
// 支持环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 将环境变量中的 _ 映射到配置的 .
	// 例如: MYSQL_HOST -> mysql.host
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	// 配置文件不存在时继续使用默认值和环境变量
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyProviderDefaults(&cfg.AI)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置项的取值范围
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageMySQL, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	switch c.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("unsupported ai provider %q", c.AI.Provider)
	}

	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ai.max_tokens must be positive, got %d", c.AI.MaxTokens)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive, got %s", c.AI.Timeout)
	}
	return nil
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// 存储配置
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("mysql.host", "MYSQL_HOST")
	v.BindEnv("mysql.port", "MYSQL_PORT")
	v.BindEnv("mysql.username", "MYSQL_USERNAME")
	v.BindEnv("mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("mysql.database", "MYSQL_DATABASE")
	v.BindEnv("postgres.dsn", "POSTGRES_DSN", "DATABASE_URL")
	v.BindEnv("sqlite.path", "SQLITE_PATH")

	// Redis 配置
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// AI 配置
	v.BindEnv("ai.provider", "AI_PROVIDER")
	v.BindEnv("ai.api_key", "AI_API_KEY", "TOGETHER_API_KEY")
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.model", "AI_MODEL")
	v.BindEnv("ai.timeout", "AI_TIMEOUT")

	// 日志配置
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
}

// setDefaults 设置配置项的默认值
// 当配置文件中没有指定某个值时，将使用这里设置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"*"})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 存储默认配置
	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.max_idle_conns", 10)
	v.SetDefault("storage.max_open_conns", 100)
	v.SetDefault("storage.max_lifetime", 3600)
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.charset", "utf8mb4")
	v.SetDefault("sqlite.path", "relay-chat.db")

	// Redis 默认配置
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)

	// AI 默认配置
	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", "60s")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// applyProviderDefaults 按服务商补全未配置的接口地址和模型
func applyProviderDefaults(ai *AIConfig) {
	switch ai.Provider {
	case ProviderOpenAI:
		if ai.BaseURL == "" {
			ai.BaseURL = "https://api.together.xyz/v1"
		}
		if ai.Model == "" {
			ai.Model = "mistralai/Mixtral-8x7B-Instruct-v0.1"
		}
	case ProviderAnthropic:
		if ai.Model == "" {
			ai.Model = "claude-3-5-haiku-latest"
		}
	case ProviderGemini:
		if ai.Model == "" {
			ai.Model = "gemini-2.0-flash"
		}
	case ProviderMock:
		if ai.Model == "" {
			ai.Model = "mock-echo"
		}
	}
}
