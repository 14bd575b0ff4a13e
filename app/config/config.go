package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"
	configPathEnv     = "DOCCHAT_CONFIG"
	tokenEnv          = "OPENAI_API_KEY"
)

type Config struct {
	Log      Log      `yaml:"log"`
	Model    Model    `yaml:"model"`
	Document Document `yaml:"document"`
	Server   Server   `yaml:"server"`
	MCP      MCP      `yaml:"mcp"`
	Session  Session  `yaml:"session"`
	Engine   Engine   `yaml:"engine"`
}

type Model struct {
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required,url"`
	// API token, falls back to OPENAI_API_KEY
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// Chat model name
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0" validate:"gte=0,lte=2"`
	// Completion token limit, 0 means provider default
	MaxTokens int `yaml:"max_tokens" example:"1024" validate:"gte=0"`
	// Per-request timeout
	Timeout time.Duration `yaml:"timeout" example:"60s" validate:"gt=0"`
}

type Document struct {
	// Maximum number of characters of document text sent to the model
	ContextMaxChars int `yaml:"context_max_chars" example:"2000" validate:"gt=0"`
	// Directory for uploaded documents
	UploadDir string `yaml:"upload_dir" example:"data/uploads" validate:"required"`
	// Maximum upload size in megabytes
	MaxUploadMB int `yaml:"max_upload_mb" example:"32" validate:"gt=0"`
}

type Server struct {
	// HTTP listen address
	Listen string `yaml:"listen" example:":8080" validate:"required"`
}

type MCP struct {
	// Enable MCP tool server
	Enabled bool `yaml:"enabled" example:"false"`
	// MCP SSE listen address
	Listen string `yaml:"listen" example:":8081" validate:"required_if=Enabled true"`
	// Public base url of the MCP server
	BaseURL string `yaml:"base_url" example:"http://localhost:8081"`
}

type Session struct {
	// Idle time after which a session is forgotten
	TTL time.Duration `yaml:"ttl" example:"1h" validate:"gt=0"`
	// How often expired sessions are purged
	CleanupInterval time.Duration `yaml:"cleanup_interval" example:"10m" validate:"gt=0"`
}

type Engine struct {
	// Pending turns buffer size
	QueueSize int `yaml:"queue_size" example:"64" validate:"gt=0"`
}

type Log struct {
	// Minimum log level
	Level string `yaml:"level" example:"debug" validate:"oneof=debug info warn error"`
	// Rotating file logging config
	File FileLog `yaml:"file"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type FileLog struct {
	// Log file path, empty disables file logging
	Path string `yaml:"path" example:"data/docchat.log"`
	// Max size of a single file in megabytes
	MaxSizeMB int `yaml:"max_size_mb" example:"10"`
	// Number of rotated files to keep
	MaxBackups int `yaml:"max_backups" example:"5"`
	// Days to keep rotated files
	MaxAgeDays int `yaml:"max_age_days" example:"30"`
	// Gzip rotated files
	Compress bool `yaml:"compress" example:"true"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

// Load reads the config from DOCCHAT_CONFIG or config.yaml.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := os.Getenv(configPathEnv)
	if path == "" {
		path = defaultConfigPath
	}

	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.File.MaxSizeMB == 0 {
		cfg.Log.File.MaxSizeMB = 10
	}
	if cfg.Log.File.MaxBackups == 0 {
		cfg.Log.File.MaxBackups = 5
	}
	if cfg.Log.File.MaxAgeDays == 0 {
		cfg.Log.File.MaxAgeDays = 30
	}

	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model.Token == "" {
		cfg.Model.Token = os.Getenv(tokenEnv)
	}
	if cfg.Model.Model == "" {
		cfg.Model.Model = "gpt-4o-mini"
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = 60 * time.Second
	}

	if cfg.Document.ContextMaxChars == 0 {
		cfg.Document.ContextMaxChars = 2000
	}
	if cfg.Document.UploadDir == "" {
		cfg.Document.UploadDir = "data/uploads"
	}
	if cfg.Document.MaxUploadMB == 0 {
		cfg.Document.MaxUploadMB = 32
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.MCP.Listen == "" {
		cfg.MCP.Listen = ":8081"
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = time.Hour
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 10 * time.Minute
	}

	if cfg.Engine.QueueSize == 0 {
		cfg.Engine.QueueSize = 64
	}
}
