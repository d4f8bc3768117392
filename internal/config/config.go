// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port          int           `yaml:"port"`
	AuthSecret    string        `yaml:"auth_secret"`
	LoginUser     string        `yaml:"login_user"`
	LoginPassword string        `yaml:"login_password"`
	SecureCookie  bool          `yaml:"secure_cookie"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // file | redis | postgres
	Path    string `yaml:"path"`    // file backend only
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type AIConfig struct {
	Provider       string        `yaml:"provider"` // telkom | openai | gemini (auto-picked when empty)
	TelkomKey      string        `yaml:"telkom_key"`
	TelkomURL      string        `yaml:"telkom_url"`
	OpenAIKey      string        `yaml:"openai_key"`
	GeminiKey      string        `yaml:"gemini_key"`
	GeminiURL      string        `yaml:"gemini_url"`
	DefaultModel   string        `yaml:"default_model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ChatConfig struct {
	SystemPrompt   string        `yaml:"system_prompt"`
	Temperature    float64       `yaml:"temperature"`
	MaxGenLen      int           `yaml:"max_gen_len"`
	TemperatureMax float64       `yaml:"temperature_max"`
	MaxGenLenLimit int           `yaml:"max_gen_len_limit"`
	ErrorWindow    time.Duration `yaml:"error_window"` // transient failure banner lifetime
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Chat     ChatConfig     `yaml:"chat"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	switch cfg.Store.Backend {
	case "file":
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, errors.New("redis.url is required for the redis store backend")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, errors.New("database.url is required for the postgres store backend")
		}
	default:
		return nil, fmt.Errorf("unknown store.backend %q", cfg.Store.Backend)
	}
	if !dev && cfg.AI.TelkomKey == "" && cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" {
		return nil, errors.New("no AI provider configured: set ai.telkom_key, ai.openai_key or ai.gemini_key")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.SessionTTL <= 0 {
		cfg.Web.SessionTTL = 30 * time.Minute
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "chat_sessions.json"
	}
	if cfg.AI.TelkomURL == "" {
		cfg.AI.TelkomURL = "https://api.apilogy.id/Telkom_LLM/1.0.0/infer"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.RequestTimeout <= 0 {
		cfg.AI.RequestTimeout = 30 * time.Second
	}
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = "You are a helpful assistant."
	}
	if cfg.Chat.MaxGenLen <= 0 {
		cfg.Chat.MaxGenLen = 100
	}
	if cfg.Chat.TemperatureMax <= 0 {
		cfg.Chat.TemperatureMax = 1.0
	}
	if cfg.Chat.MaxGenLenLimit <= 0 {
		cfg.Chat.MaxGenLenLimit = 2000
	}
	if cfg.Chat.ErrorWindow <= 0 {
		cfg.Chat.ErrorWindow = 5 * time.Second
	}
}
