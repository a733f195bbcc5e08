package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultEnv        = "development"
	envKey            = "SCENE_PILOT_ENV"
	envPrefix         = "SCENE_PILOT"
	defaultConfigName = "default"
	configType        = "yaml"
)

// Config 聚合应用所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Session   SessionConfig   `mapstructure:"session"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 描述应用级别的元信息。
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// ServerConfig 负责 HTTP 服务相关配置。
type ServerConfig struct {
	Host            string                `mapstructure:"host"`
	Port            int                   `mapstructure:"port"`
	ReadTimeout     time.Duration         `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration         `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration         `mapstructure:"shutdownTimeout"`
	MaxRequestBody  int64                 `mapstructure:"maxRequestBody"`
	CORS            CORSConfig            `mapstructure:"cors"`
	SecurityHeaders SecurityHeadersConfig `mapstructure:"securityHeaders"`
	RateLimit       RateLimitConfig       `mapstructure:"rateLimit"`
}

// CORSConfig 控制跨域访问白名单及相关选项。
type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allowOrigins"`
	AllowCredentials bool     `mapstructure:"allowCredentials"`
}

// SecurityHeadersConfig 控制通用安全响应头的行为。
type SecurityHeadersConfig struct {
	FrameOptions              string `mapstructure:"frameOptions"`
	ContentTypeNosniff        bool   `mapstructure:"contentTypeNosniff"`
	ReferrerPolicy            string `mapstructure:"referrerPolicy"`
	XSSProtection             string `mapstructure:"xssProtection"`
	ContentSecurityPolicy     string `mapstructure:"contentSecurityPolicy"`
	CrossOriginOpenerPolicy   string `mapstructure:"crossOriginOpenerPolicy"`
	CrossOriginEmbedderPolicy string `mapstructure:"crossOriginEmbedderPolicy"`
	CrossOriginResourcePolicy string `mapstructure:"crossOriginResourcePolicy"`
}

// RateLimitConfig 控制提示词提交接口的限流行为。
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Period  time.Duration `mapstructure:"period"`
	Limit   int64         `mapstructure:"limit"`
}

// DatabaseConfig 定义数据库连接选项，兼容 SQLite 与 PostgreSQL。
// MigrationsDir 非空时启动阶段按序执行其中的 *.up.sql，置空则交给外部迁移工具。
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpen         int           `mapstructure:"maxOpen"`
	MaxIdle         int           `mapstructure:"maxIdle"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	MigrationsDir   string        `mapstructure:"migrationsDir"`
}

// RedisConfig 描述 Redis 客户端所需的连接参数；Enabled 为 false 时整体跳过。
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
}

// AuthConfig 管理 JWT 与 API Key 等认证参数。
type AuthConfig struct {
	AccessTokenSecret  string         `mapstructure:"accessTokenSecret"`
	RefreshTokenSecret string         `mapstructure:"refreshTokenSecret"`
	AccessTokenTTL     time.Duration  `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL    time.Duration  `mapstructure:"refreshTokenTTL"`
	APIKeys            []APIKeyConfig `mapstructure:"apiKeys"`
}

// APIKeyConfig 描述一个允许换取令牌的 API Key，只保存 bcrypt 哈希。
type APIKeyConfig struct {
	ID   string `mapstructure:"id"`
	Hash string `mapstructure:"hash"`
	Role string `mapstructure:"role"`
}

// ProvidersConfig 描述 LLM 供应商选择与各自的接入参数。
type ProvidersConfig struct {
	Active      string            `mapstructure:"active"`
	Endpoints   map[string]string `mapstructure:"endpoints"`
	Credentials map[string]string `mapstructure:"credentials"`
	Models      map[string]string `mapstructure:"models"`
	MaxTokens   int               `mapstructure:"maxTokens"`
	Temperature float64           `mapstructure:"temperature"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
}

// HuggingFaceConfig 指定代码类与通用类提示词各自路由到的模型。
type HuggingFaceConfig struct {
	CodeModel    string `mapstructure:"codeModel"`
	GeneralModel string `mapstructure:"generalModel"`
}

// SafetyConfig 控制脚本安全过滤的拒绝清单。
type SafetyConfig struct {
	Denylist []string `mapstructure:"denylist"`
}

// QueueConfig 控制后台任务队列的轮询节奏。
type QueueConfig struct {
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// SessionConfig 描述会话默认归属与历史查询上限。
type SessionConfig struct {
	UserID       string `mapstructure:"userId"`
	ProjectID    string `mapstructure:"projectId"`
	HistoryLimit int    `mapstructure:"historyLimit"`
}

// LoggingConfig 控制日志输出级别等行为。
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load 从给定路径加载配置；若 env 为空会自动读取环境变量或回退到默认值。
func Load(configDir string, env string) (*Config, error) {
	chosenEnv := determineEnv(env)

	v := viper.New()
	v.SetConfigType(configType)
	v.SetConfigName(defaultConfigName)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read base config: %w", err)
	}

	if chosenEnv != defaultConfigName {
		envConfig := viper.New()
		envConfig.SetConfigType(configType)
		envConfig.SetConfigName(chosenEnv)
		envConfig.AddConfigPath(configDir)

		if err := envConfig.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(envConfig.AllSettings()); err != nil {
				return nil, fmt.Errorf("merge %s config: %w", chosenEnv, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg, chosenEnv)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// determineEnv 统一处理环境变量回退逻辑。
func determineEnv(env string) string {
	if env != "" {
		return env
	}
	if fromEnv := os.Getenv(envKey); fromEnv != "" {
		return fromEnv
	}
	return defaultEnv
}

// applyDefaults 补齐缺失字段，避免配置不完整导致的崩溃。
func applyDefaults(cfg *Config, env string) {
	if cfg.App.Name == "" {
		cfg.App.Name = "scene-pilot"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = env
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// 同步生成接口会阻塞到供应商超时，写超时必须覆盖它
		cfg.Server.WriteTimeout = 90 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxRequestBody <= 0 {
		cfg.Server.MaxRequestBody = 1 * 1024 * 1024
	}
	if len(cfg.Server.CORS.AllowOrigins) == 0 {
		cfg.Server.CORS.AllowOrigins = []string{"*"}
	}
	if cfg.Server.SecurityHeaders.FrameOptions == "" {
		cfg.Server.SecurityHeaders.FrameOptions = "DENY"
	}
	if cfg.Server.SecurityHeaders.ContentTypeNosniff == false {
		cfg.Server.SecurityHeaders.ContentTypeNosniff = true
	}
	if cfg.Server.SecurityHeaders.ReferrerPolicy == "" {
		cfg.Server.SecurityHeaders.ReferrerPolicy = "no-referrer"
	}
	if cfg.Server.SecurityHeaders.XSSProtection == "" {
		cfg.Server.SecurityHeaders.XSSProtection = "0"
	}
	if cfg.Server.SecurityHeaders.CrossOriginOpenerPolicy == "" {
		cfg.Server.SecurityHeaders.CrossOriginOpenerPolicy = "same-origin"
	}
	if cfg.Server.SecurityHeaders.CrossOriginResourcePolicy == "" {
		cfg.Server.SecurityHeaders.CrossOriginResourcePolicy = "same-site"
	}
	if cfg.Server.RateLimit.Period == 0 {
		cfg.Server.RateLimit.Period = time.Minute
	}
	if cfg.Server.RateLimit.Limit == 0 {
		cfg.Server.RateLimit.Limit = 30
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:./data/dev.db?cache=shared&_fk=1"
	}
	if cfg.Database.MaxOpen == 0 {
		cfg.Database.MaxOpen = 10
	}
	if cfg.Database.MaxIdle == 0 {
		cfg.Database.MaxIdle = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Database.MigrationsDir == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.MigrationsDir = "db/migrations"
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Auth.AccessTokenTTL == 0 {
		cfg.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.Auth.RefreshTokenTTL == 0 {
		cfg.Auth.RefreshTokenTTL = 720 * time.Hour
	}
	if cfg.Providers.Active == "" {
		cfg.Providers.Active = "local"
	}
	if cfg.Providers.Endpoints == nil {
		cfg.Providers.Endpoints = map[string]string{}
	}
	if _, ok := cfg.Providers.Endpoints["local"]; !ok {
		cfg.Providers.Endpoints["local"] = "http://localhost:8000/generate"
	}
	if cfg.Providers.Credentials == nil {
		cfg.Providers.Credentials = map[string]string{}
	}
	if cfg.Providers.Models == nil {
		cfg.Providers.Models = map[string]string{}
	}
	if cfg.Providers.MaxTokens == 0 {
		cfg.Providers.MaxTokens = 512
	}
	if cfg.Providers.Temperature == 0 {
		cfg.Providers.Temperature = 0.7
	}
	if cfg.Providers.Timeout == 0 {
		cfg.Providers.Timeout = 60 * time.Second
	}
	if cfg.Providers.HuggingFace.CodeModel == "" {
		cfg.Providers.HuggingFace.CodeModel = "bigcode/starcoder2-15b"
	}
	if cfg.Providers.HuggingFace.GeneralModel == "" {
		cfg.Providers.HuggingFace.GeneralModel = "meta-llama/Meta-Llama-3-8B-Instruct"
	}
	if len(cfg.Safety.Denylist) == 0 {
		cfg.Safety.Denylist = []string{
			"import os",
			"import subprocess",
			"open(",
			"os.system",
			"shutil.rmtree",
		}
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = 100 * time.Millisecond
	}
	if cfg.Session.UserID == "" {
		cfg.Session.UserID = "local"
	}
	if cfg.Session.ProjectID == "" {
		cfg.Session.ProjectID = "default"
	}
	if cfg.Session.HistoryLimit == 0 {
		cfg.Session.HistoryLimit = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validateConfig(cfg *Config) error {
	if err := validateSecret("auth.accessTokenSecret", cfg.Auth.AccessTokenSecret); err != nil {
		return err
	}
	if err := validateSecret("auth.refreshTokenSecret", cfg.Auth.RefreshTokenSecret); err != nil {
		return err
	}
	if err := validateCORSConfig(cfg.Server.CORS, cfg.App.Env); err != nil {
		return err
	}
	if err := validateSecurityHeaders(cfg.Server.SecurityHeaders); err != nil {
		return err
	}
	if err := validateProviders(cfg.Providers); err != nil {
		return err
	}
	for i, key := range cfg.Auth.APIKeys {
		if strings.TrimSpace(key.ID) == "" {
			return fmt.Errorf("config auth.apiKeys[%d].id must not be empty", i)
		}
		if !strings.HasPrefix(key.Hash, "$2") {
			return fmt.Errorf("config auth.apiKeys[%d].hash must be a bcrypt hash", i)
		}
	}
	return nil
}

func validateSecret(field, secret string) error {
	clean := strings.TrimSpace(secret)
	if len(clean) < 32 {
		return fmt.Errorf("config %s must be at least 32 characters", field)
	}
	if strings.Contains(strings.ToLower(clean), "change-me") {
		return fmt.Errorf("config %s must not use default placeholder", field)
	}
	return nil
}

func validateCORSConfig(corsCfg CORSConfig, env string) error {
	for _, origin := range corsCfg.AllowOrigins {
		clean := strings.TrimSpace(origin)
		if clean == "" {
			return fmt.Errorf("config server.cors.allowOrigins must not contain empty entries")
		}
		if env == "production" && clean == "*" {
			return fmt.Errorf("config server.cors.allowOrigins must not use wildcard '*' in production")
		}
	}
	return nil
}

func validateSecurityHeaders(secCfg SecurityHeadersConfig) error {
	frame := strings.TrimSpace(strings.ToUpper(secCfg.FrameOptions))
	if frame != "" && frame != "DENY" && frame != "SAMEORIGIN" {
		return fmt.Errorf("config server.securityHeaders.frameOptions must be DENY or SAMEORIGIN when set")
	}
	return nil
}

func validateProviders(p ProvidersConfig) error {
	if strings.TrimSpace(p.Active) == "" {
		return fmt.Errorf("config providers.active must not be empty")
	}
	for tag, endpoint := range p.Endpoints {
		if strings.TrimSpace(endpoint) == "" {
			return fmt.Errorf("config providers.endpoints.%s must not be empty when set", tag)
		}
	}
	return nil
}

// Addr 返回 HTTP 服务监听地址。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
