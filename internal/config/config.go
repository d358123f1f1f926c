package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models taskboard.yml.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	AI       AIConfig       `yaml:"ai" json:"ai"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Blob     BlobConfig     `yaml:"blob" json:"blob"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	NATS     NATSConfig     `yaml:"nats" json:"nats"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	BasePath        string        `yaml:"base_path" json:"base_path"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`
	DevLogin  bool   `yaml:"dev_login" json:"dev_login"`
}

type AIConfig struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	Models  []string      `yaml:"models" json:"models"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type CalendarConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	RedirectURL  string        `yaml:"redirect_url" json:"redirect_url"`
	SuccessURL   string        `yaml:"success_url" json:"success_url"`
	ErrorURL     string        `yaml:"error_url" json:"error_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// BlobConfig selects where drawing previews and voice audio live. With
// Enabled=false they are stored in the SQLite database.
type BlobConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
}

type RedisConfig struct {
	URL string `yaml:"url" json:"url"`
}

type NATSConfig struct {
	URL           string `yaml:"url" json:"url"`
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`
}

type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// Load reads the workspace config, falling back to defaults when the file is absent.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.AI.Timeout < time.Second || c.AI.Timeout > time.Minute {
		return fmt.Errorf("config.ai.timeout must be between 1s and 60s")
	}
	for _, m := range c.AI.Models {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("config.ai.models contains an empty model name")
		}
	}
	if c.Calendar.Enabled {
		if c.Calendar.ClientID == "" || c.Calendar.ClientSecret == "" {
			return fmt.Errorf("config.calendar.client_id and client_secret are required when calendar is enabled")
		}
		if c.Calendar.RedirectURL == "" {
			return fmt.Errorf("config.calendar.redirect_url is required when calendar is enabled")
		}
	}
	if c.Calendar.Timeout <= 0 {
		return fmt.Errorf("config.calendar.timeout must be positive")
	}
	if c.Blob.Enabled && (c.Blob.Endpoint == "" || c.Blob.Bucket == "") {
		return fmt.Errorf("config.blob.endpoint and bucket are required when blob storage is enabled")
	}
	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("config.nats.subject_prefix is required when nats.url is set")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be debug, info, warn or error")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	c.AI.APIKey = mask(c.AI.APIKey)
	c.Calendar.ClientSecret = mask(c.Calendar.ClientSecret)
	c.Blob.SecretKey = mask(c.Blob.SecretKey)
	c.AI.Models = append([]string(nil), c.AI.Models...)
	return c
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskboard.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes, layered over the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /api
  shutdown_timeout: 5s

auth:
  jwt_secret: ""
  dev_login: false

ai:
  api_key: ""
  timeout: 12s
  models:
    - gemini-1.5-flash
    - gemini-1.5-pro
    - models/gemini-1.5-flash
    - models/gemini-1.5-pro
    - gemini-pro
    - models/gemini-pro

calendar:
  enabled: false
  client_id: ""
  client_secret: ""
  redirect_url: http://127.0.0.1:8080/api/calendar/callback
  success_url: /?calendar=connected
  error_url: /?calendar=error
  timeout: 10s

blob:
  enabled: false
  endpoint: ""
  bucket: taskboard
  region: us-east-1
  use_ssl: true

redis:
  url: ""

nats:
  url: ""
  subject_prefix: taskboard

log:
  level: info
  file: ""
  max_size_mb: 50
  max_backups: 5
  max_age_days: 30
`
