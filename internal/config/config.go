package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App        AppConfig        `toml:"app"`
	Auth       AuthConfig       `toml:"auth"`
	Log        LogConfig        `toml:"log"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	RabbitMQ   RabbitMQConfig   `toml:"rabbitmq"`
	Backboard  BackboardConfig  `toml:"backboard"`
	Ingest     IngestConfig     `toml:"ingest"`
	Generation GenerationConfig `toml:"generation"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type DatabaseConfig struct {
	Driver     string `toml:"driver"`
	SQLitePath string `toml:"sqlite_path"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	DB         string `toml:"db"`
	Params     string `toml:"params"`
}

// RedisConfig configures the cross-process ingest lock. An empty Addr falls
// back to an in-process lock, which is only safe with a single server process.
type RedisConfig struct {
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	LockTTLSeconds int    `toml:"lock_ttl_seconds"`
}

// RabbitMQConfig configures the generation job and chat message queues. An
// empty URL makes the server dispatch generation jobs to its in-process
// worker pool and store chat messages directly.
type RabbitMQConfig struct {
	URL             string `toml:"url"`
	GenerationQueue string `toml:"generation_queue"`
	ChatQueue       string `toml:"chat_queue"`
}

type BackboardConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	LLMProvider    string `toml:"llm_provider"`
	ModelName      string `toml:"model_name"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type IngestConfig struct {
	UploadDir      string `toml:"upload_dir"`
	TempDir        string `toml:"temp_dir"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

type GenerationConfig struct {
	Workers             int `toml:"workers"`
	ReadyTimeoutSeconds int `toml:"ready_timeout_seconds"`
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	MaxQuestions        int `toml:"max_questions"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the ingestion and generation paths cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return errors.New("ingest.max_upload_bytes must be positive")
	}
	if c.Generation.ReadyTimeoutSeconds <= 0 || c.Generation.PollIntervalSeconds <= 0 {
		return errors.New("generation timeout and poll interval must be positive")
	}
	if c.Generation.Workers <= 0 {
		return errors.New("generation.workers must be positive")
	}
	if c.Generation.MaxQuestions <= 0 {
		return errors.New("generation.max_questions must be positive")
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DB,
		c.Database.Params,
	)
}

func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Generation.ReadyTimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Generation.PollIntervalSeconds) * time.Second
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "copium-tutor",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8000,
			GinMode: "debug",
		},
		Auth: AuthConfig{
			JWTSecret: "change-me-in-production",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/copium.db",
			Host:       "127.0.0.1",
			Port:       3306,
			User:       "root",
			DB:         "copium_tutor",
			Params:     "parseTime=true&loc=Local&charset=utf8mb4",
		},
		Redis: RedisConfig{
			Addr:           "",
			DB:             0,
			LockTTLSeconds: 1800,
		},
		RabbitMQ: RabbitMQConfig{
			URL:             "",
			GenerationQueue: "quiz.generate",
			ChatQueue:       "chat.messages",
		},
		Backboard: BackboardConfig{
			BaseURL:        "https://app.backboard.io/api",
			LLMProvider:    "openai",
			ModelName:      "gpt-4o",
			TimeoutSeconds: 300,
		},
		Ingest: IngestConfig{
			UploadDir:      "uploads",
			TempDir:        "",
			MaxUploadBytes: 10 << 20,
		},
		Generation: GenerationConfig{
			Workers:             8,
			ReadyTimeoutSeconds: 900,
			PollIntervalSeconds: 2,
			MaxQuestions:        50,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)
	cfg.Database.Host = getEnv("MYSQL_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("MYSQL_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("MYSQL_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("MYSQL_PASSWORD", cfg.Database.Password)
	cfg.Database.DB = getEnv("MYSQL_DB", cfg.Database.DB)
	cfg.Database.Params = getEnv("MYSQL_PARAMS", cfg.Database.Params)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.LockTTLSeconds = getEnvAsInt("REDIS_LOCK_TTL_SECONDS", cfg.Redis.LockTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.GenerationQueue = getEnv("RABBITMQ_GENERATION_QUEUE", cfg.RabbitMQ.GenerationQueue)
	cfg.RabbitMQ.ChatQueue = getEnv("RABBITMQ_CHAT_QUEUE", cfg.RabbitMQ.ChatQueue)

	cfg.Backboard.BaseURL = getEnv("BACKBOARD_BASE_URL", cfg.Backboard.BaseURL)
	cfg.Backboard.APIKey = getEnv("BACKBOARD_API_KEY", cfg.Backboard.APIKey)
	cfg.Backboard.LLMProvider = getEnv("BACKBOARD_LLM_PROVIDER", cfg.Backboard.LLMProvider)
	cfg.Backboard.ModelName = getEnv("BACKBOARD_MODEL_NAME", cfg.Backboard.ModelName)
	cfg.Backboard.TimeoutSeconds = getEnvAsInt("BACKBOARD_TIMEOUT_SECONDS", cfg.Backboard.TimeoutSeconds)

	cfg.Ingest.UploadDir = getEnv("UPLOAD_DIR", cfg.Ingest.UploadDir)
	cfg.Ingest.TempDir = getEnv("INGEST_TEMP_DIR", cfg.Ingest.TempDir)
	cfg.Ingest.MaxUploadBytes = getEnvAsInt64("INGEST_MAX_UPLOAD_BYTES", cfg.Ingest.MaxUploadBytes)

	cfg.Generation.Workers = getEnvAsInt("GENERATION_WORKERS", cfg.Generation.Workers)
	cfg.Generation.ReadyTimeoutSeconds = getEnvAsInt("GENERATION_READY_TIMEOUT_SECONDS", cfg.Generation.ReadyTimeoutSeconds)
	cfg.Generation.PollIntervalSeconds = getEnvAsInt("GENERATION_POLL_INTERVAL_SECONDS", cfg.Generation.PollIntervalSeconds)
	cfg.Generation.MaxQuestions = getEnvAsInt("GENERATION_MAX_QUESTIONS", cfg.Generation.MaxQuestions)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt64(key string, fallback int64) int64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
