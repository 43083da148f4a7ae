package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	LogLevel         string   `mapstructure:"LOG_LEVEL"`
	CORSAllowOrigin  []string `mapstructure:"-"`
	LLMProvider      string   `mapstructure:"LLM_PROVIDER"`
	LLMModel         string   `mapstructure:"LLM_MODEL"`
	LLMAPIKey        string   `mapstructure:"LLM_API_KEY"`
	LLMBaseURL       string   `mapstructure:"LLM_BASE_URL"`
	LLMTimeoutSecs   int      `mapstructure:"LLM_TIMEOUT_SECONDS"`
	ScanPolicy       string   `mapstructure:"SCAN_POLICY"`
	RoutingRulesFile string   `mapstructure:"ROUTING_RULES_FILE"`
	MaxImageBytes    int64    `mapstructure:"MAX_IMAGE_BYTES"`
	RateLimitRPS     float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int      `mapstructure:"RATE_LIMIT_BURST"`
}

// Providers accepted in LLM_PROVIDER.
const (
	ProviderGateway     = "gateway"
	ProviderGemini      = "gemini"
	ProviderPlaceholder = "placeholder"
)

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "CORS_ALLOW_ORIGINS",
	"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_BASE_URL", "LLM_TIMEOUT_SECONDS",
	"SCAN_POLICY", "ROUTING_RULES_FILE",
	"MAX_IMAGE_BYTES", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an
// error; environment variables always win over file values.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("LLM_PROVIDER", ProviderGateway)
	v.SetDefault("LLM_TIMEOUT_SECONDS", 120)
	v.SetDefault("SCAN_POLICY", "fracture-only")
	v.SetDefault("MAX_IMAGE_BYTES", 10<<20)
	v.SetDefault("RATE_LIMIT_RPS", 1)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.ScanPolicy = strings.ToLower(strings.TrimSpace(cfg.ScanPolicy))
	cfg.CORSAllowOrigin = splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGateway, ProviderGemini:
		if strings.TrimSpace(c.LLMAPIKey) == "" && c.Env == "production" {
			return fmt.Errorf("LLM_API_KEY is required for provider %q", c.LLMProvider)
		}
	case ProviderPlaceholder:
	default:
		return fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLMProvider)
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("MAX_IMAGE_BYTES must be positive")
	}
	if c.LLMTimeoutSecs <= 0 {
		return errors.New("LLM_TIMEOUT_SECONDS must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}

// LLMTimeout is the HTTP timeout for one vision call.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSecs) * time.Second
}

// IsProduction returns true when the server is configured for production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
