package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Upload    UploadConfig    `mapstructure:"upload"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT"`
	User     string `mapstructure:"user" envconfig:"DB_USER"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" envconfig:"REDIS_URL"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret" envconfig:"SESSION_SECRET"`
	TTL    time.Duration `mapstructure:"ttl" envconfig:"SESSION_TTL"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key" envconfig:"GEMINI_API_KEY"`
	BaseURL string        `mapstructure:"base_url" envconfig:"GEMINI_BASE_URL"`
	Model   string        `mapstructure:"model" envconfig:"GEMINI_MODEL"`
	Timeout time.Duration `mapstructure:"timeout" envconfig:"GEMINI_TIMEOUT"`
	Enabled bool          `mapstructure:"enabled" envconfig:"GEMINI_ENABLED"`
}

type UploadConfig struct {
	Dir        string        `mapstructure:"dir" envconfig:"UPLOAD_DIR"`
	MaxBytes   int64         `mapstructure:"max_bytes" envconfig:"UPLOAD_MAX_BYTES"`
	PendingTTL time.Duration `mapstructure:"pending_ttl" envconfig:"UPLOAD_PENDING_TTL"`
	SweepEvery time.Duration `mapstructure:"sweep_every" envconfig:"UPLOAD_SWEEP_EVERY"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" envconfig:"RATE_LIMIT_RPS"`
	Burst int     `mapstructure:"burst" envconfig:"RATE_LIMIT_BURST"`
}

// Load reads config.yml (working directory or ./config), then applies
// PHMS_* environment overrides. The result is validated once here and
// passed down; nothing re-reads configuration mid-request.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional when everything arrives via env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("phms", &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.request_timeout", "30s")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("session.ttl", "12h")
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("gemini.timeout", "60s")
	viper.SetDefault("gemini.enabled", true)
	viper.SetDefault("upload.dir", "uploads")
	viper.SetDefault("upload.max_bytes", 16<<20)
	viper.SetDefault("upload.pending_ttl", "30m")
	viper.SetDefault("upload.sweep_every", "5m")
	viper.SetDefault("rate_limit.rps", 50)
	viper.SetDefault("rate_limit.burst", 100)
}

// Validate rejects a config the server cannot safely start with.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
		return fmt.Errorf("database host, name and user are required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Gemini.Enabled && c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini api key is required unless gemini.enabled is false")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max_bytes must be positive")
	}
	return nil
}
