package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultPort         = 5000
	DefaultDevOrigin    = "http://localhost:5173"
	DefaultPublicDir    = "public"
	DefaultProvider     = "gemini"
	DefaultGenTimeout   = 2 * time.Minute
	DefaultCatalog      = "none"
	productionEnv       = "production"
	uploadsSubdirectory = "uploads"
)

// Config represents runtime configuration for the service.
// Values are layered: defaults, then the optional JSON file, then the environment.
type Config struct {
	BasicConfig BasicConfig    `json:"basic_config"`
	Provider    ProviderConfig `json:"provider"`
	Catalog     CatalogConfig  `json:"catalog"`
	Redis       RedisConfig    `json:"redis"`
}

type BasicConfig struct {
	Port           int    `json:"port" env:"PORT"`
	Environment    string `json:"environment" env:"NODE_ENV"`
	FrontendURL    string `json:"frontend_url" env:"FRONTEND_URL"`
	DevOrigin      string `json:"dev_origin" env:"DEV_ORIGIN"`
	PublicDir      string `json:"public_dir" env:"PUBLIC_DIR"`
	MaxUploadBytes int64  `json:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	LogLevel       string `json:"log_level" env:"LOG_LEVEL"`
}

type ProviderConfig struct {
	Name         string   `json:"name" env:"AI_PROVIDER"`
	Model        string   `json:"model" env:"AI_MODEL"`
	APIKey       string   `json:"api_key" env:"AI_API_KEY"`
	GeminiAPIKey string   `json:"gemini_api_key" env:"GEMINI_API_KEY"`
	BaseURL      string   `json:"base_url" env:"AI_BASE_URL"`
	Timeout      Duration `json:"timeout" env:"GENERATION_TIMEOUT"`
}

type CatalogConfig struct {
	Driver string `json:"driver" env:"CATALOG_DRIVER"`
	DSN    string `json:"dsn" env:"CATALOG_DSN"`
}

type RedisConfig struct {
	Host     string `json:"host" env:"REDIS_HOST"`
	Port     int    `json:"port" env:"REDIS_PORT"`
	Username string `json:"username" env:"REDIS_USERNAME"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

// Duration accepts Go duration strings ("90s", "2m") in both JSON and env values.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			Port:      DefaultPort,
			DevOrigin: DefaultDevOrigin,
			PublicDir: DefaultPublicDir,
			LogLevel:  "info",
		},
		Provider: ProviderConfig{
			Name:    DefaultProvider,
			Timeout: Duration{DefaultGenTimeout},
		},
		Catalog: CatalogConfig{
			Driver: DefaultCatalog,
		},
		Redis: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first (existing variables win), then the JSON file at path when
// path is non-empty, then the process environment.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.BasicConfig.Port <= 0 || c.BasicConfig.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.BasicConfig.Port)
	}
	if c.IsProduction() && strings.TrimSpace(c.BasicConfig.FrontendURL) == "" {
		return errors.New("FRONTEND_URL must be configured in production")
	}
	if c.BasicConfig.PublicDir == "" {
		return errors.New("public_dir must be configured")
	}
	if c.BasicConfig.MaxUploadBytes < 0 {
		return errors.New("max_upload_bytes cannot be negative")
	}
	if c.Provider.Timeout.Duration < 0 {
		return errors.New("generation timeout cannot be negative")
	}
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	c.Catalog.Driver = strings.ToLower(strings.TrimSpace(c.Catalog.Driver))
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = DefaultCatalog
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.BasicConfig.Environment), productionEnv)
}

// AllowedOrigin is the single origin accepted by the CORS layer.
func (c *Config) AllowedOrigin() string {
	if c.IsProduction() {
		return c.BasicConfig.FrontendURL
	}
	return c.BasicConfig.DevOrigin
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.BasicConfig.Port)
}

// UploadDir is where uploaded files are written; it lives under the public directory.
func (c *Config) UploadDir() string {
	return filepath.Join(c.BasicConfig.PublicDir, uploadsSubdirectory)
}

// Token returns the credential for the configured provider.
func (p ProviderConfig) Token() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.Name == "" || p.Name == DefaultProvider {
		return p.GeminiAPIKey
	}
	return ""
}
