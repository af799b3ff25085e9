package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// ProviderConfig 定义远端邮件服务商 API 的访问配置
type ProviderConfig struct {
	BaseURL        string        // 服务商 API 根地址
	Timeout        time.Duration // 单次请求超时，默认 30s
	RateLimit      float64       // 每秒最大请求数，默认 10
	RateBurst      int           // 突发请求配额，默认 20
	SyncWindowDays int           // 首次同步回溯窗口（天），默认 14
}

// SyncConfig 定义同步引擎的行为参数
type SyncConfig struct {
	PollInterval        time.Duration // 就绪探测间隔，默认 2s
	PollMaxAttempts     int           // 就绪探测最大次数（含首次），默认 5
	UpsertConcurrency   int           // 邮件落库并发上限，默认 10
	IncrementalInterval time.Duration // 后台增量同步周期，默认 5m；0 表示关闭
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type string // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN  string // 数据库连接字符串
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig   // HTTP 服务器配置
	Provider ProviderConfig // 远端服务商配置
	Sync     SyncConfig     // 同步引擎配置
	CORS     CORSConfig     // 跨域配置
	Log      LogConfig      // 日志配置
	Database DatabaseConfig // 数据库配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILSYNC_
// 例如: MAILSYNC_SERVER_PORT, MAILSYNC_PROVIDER_BASE_URL
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，.env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("mailsync")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("provider.base_url", "https://api.aurinko.io/v1")
	viper.SetDefault("provider.timeout", "30s")
	viper.SetDefault("provider.rate_limit", 10.0)
	viper.SetDefault("provider.rate_burst", 20)
	viper.SetDefault("provider.sync_window_days", 14)
	viper.SetDefault("sync.poll_interval", "2s")
	viper.SetDefault("sync.poll_max_attempts", 5)
	viper.SetDefault("sync.upsert_concurrency", 10)
	viper.SetDefault("sync.incremental_interval", "5m")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")

	baseURL := strings.TrimRight(viper.GetString("provider.base_url"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("provider.base_url must not be empty")
	}

	timeout, err := time.ParseDuration(viper.GetString("provider.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid provider.timeout: %w", err)
	}

	windowDays := viper.GetInt("provider.sync_window_days")
	if windowDays <= 0 {
		windowDays = 14
	}

	pollInterval, err := time.ParseDuration(viper.GetString("sync.poll_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid sync.poll_interval: %w", err)
	}

	pollAttempts := viper.GetInt("sync.poll_max_attempts")
	if pollAttempts <= 0 {
		pollAttempts = 5
	}

	concurrency := viper.GetInt("sync.upsert_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	incrementalInterval, err := time.ParseDuration(viper.GetString("sync.incremental_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid sync.incremental_interval: %w", err)
	}

	dbType := viper.GetString("database.type")
	dbDSN := viper.GetString("database.dsn")
	if dbType != "" && dbType != "postgres" && dbType != "mysql" {
		return nil, fmt.Errorf("unsupported database.type: %s", dbType)
	}
	if dbType != "" && dbDSN == "" {
		return nil, fmt.Errorf("database.dsn is required when database.type is set")
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Provider: ProviderConfig{
			BaseURL:        baseURL,
			Timeout:        timeout,
			RateLimit:      viper.GetFloat64("provider.rate_limit"),
			RateBurst:      viper.GetInt("provider.rate_burst"),
			SyncWindowDays: windowDays,
		},
		Sync: SyncConfig{
			PollInterval:        pollInterval,
			PollMaxAttempts:     pollAttempts,
			UpsertConcurrency:   concurrency,
			IncrementalInterval: incrementalInterval,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type: dbType,
			DSN:  dbDSN,
		},
	}

	return cfg, nil
}

// loadEnvFile 尝试从当前目录或父目录加载 .env 文件
func loadEnvFile() {
	candidates := []string{".env", filepath.Join("..", ".env")}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// parseList 解析逗号分隔的列表，去除空白项
func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	var list []string
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}
