// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Strict bool // production mode: missing required config aborts startup
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"` // used for CORS and the emailed link
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RazorpayConfig struct {
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// Configured reports whether the gateway can be used at all. When false
// the checkout surface degrades to 503 instead of crashing.
func (c RazorpayConfig) Configured() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

type PaymentConfig struct {
	Razorpay RazorpayConfig `yaml:"razorpay"`
}

type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

type FilesConfig struct {
	Dir string `yaml:"dir"` // protected uploads directory, never served statically
}

type AdminConfig struct {
	Password   string        `yaml:"password"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type SchedulerConfig struct {
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Email     EmailConfig     `yaml:"email"`
	Files     FilesConfig     `yaml:"files"`
	Admin     AdminConfig     `yaml:"admin"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads an optional YAML file, then layers environment
// variables on top (env wins; this is how secrets arrive in production).
// A .env file in the working directory is honored for local dev.
func LoadConfig(path string, strict bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = "http://localhost:5173"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Email.Port == 0 {
		cfg.Email.Port = 587
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "PDF Store"
	}
	if cfg.Files.Dir == "" {
		cfg.Files.Dir = "uploads"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Payment.Razorpay.WebhookSecret == "" {
		// The gateway signs webhooks with the key secret when no
		// dedicated webhook secret is provisioned.
		cfg.Payment.Razorpay.WebhookSecret = cfg.Payment.Razorpay.KeySecret
	}

	cfg.Runtime.Strict = strict
	if strict {
		if err := cfg.validateStrict(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// validateStrict enforces everything a production deployment needs.
// Outside strict mode these absences degrade per-feature instead.
func (c *Config) validateStrict() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "database.url / DATABASE_URL")
	}
	if c.Payment.Razorpay.KeyID == "" {
		missing = append(missing, "payment.razorpay.key_id / RAZORPAY_KEY_ID")
	}
	if c.Payment.Razorpay.KeySecret == "" {
		missing = append(missing, "payment.razorpay.key_secret / RAZORPAY_KEY_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("strict mode: missing required config: %v", missing)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setInt(&cfg.Server.Port, "PORT")
	setStr(&cfg.Server.FrontendURL, "FRONTEND_URL")
	setStr(&cfg.Log.Level, "LOG_LEVEL")
	setStr(&cfg.Log.Format, "LOG_FORMAT")
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setStr(&cfg.Payment.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	setStr(&cfg.Payment.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")
	setStr(&cfg.Payment.Razorpay.WebhookSecret, "RAZORPAY_WEBHOOK_SECRET")
	setStr(&cfg.Email.Host, "EMAIL_HOST")
	setInt(&cfg.Email.Port, "EMAIL_PORT")
	setStr(&cfg.Email.Username, "EMAIL_USER")
	setStr(&cfg.Email.Password, "EMAIL_PASS")
	setStr(&cfg.Email.From, "EMAIL_FROM")
	setStr(&cfg.Files.Dir, "UPLOADS_DIR")
	setStr(&cfg.Admin.Password, "ADMIN_PASSWORD")
	setStr(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
}
