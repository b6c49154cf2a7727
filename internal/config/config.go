package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Model provider (OpenAI-compatible chat completions API).
	AIAPIKey         string        `mapstructure:"AI_API_KEY"`
	AIBaseURL        string        `mapstructure:"AI_BASE_URL"`
	AIModel          string        `mapstructure:"AI_MODEL"`
	AIMaxAttempts    int           `mapstructure:"AI_MAX_ATTEMPTS"`
	AIRequestTimeout time.Duration `mapstructure:"AI_REQUEST_TIMEOUT"`

	// Embedding provider.
	EmbedBaseURL string `mapstructure:"EMBED_BASE_URL"`
	EmbedAPIKey  string `mapstructure:"EMBED_API_KEY"`
	EmbedModel   string `mapstructure:"EMBED_MODEL"`
	EmbedDim     int    `mapstructure:"EMBED_DIM"`
	EmbedWorkers int    `mapstructure:"EMBED_WORKERS"`

	// Semantic search.
	SearchThreshold float64 `mapstructure:"SEARCH_THRESHOLD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AI_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("AI_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("AI_MAX_ATTEMPTS", 3)
	v.SetDefault("AI_REQUEST_TIMEOUT", "20s")
	v.SetDefault("EMBED_MODEL", "all-MiniLM-L6-v2")
	v.SetDefault("EMBED_DIM", 384)
	v.SetDefault("EMBED_WORKERS", 2)
	v.SetDefault("SEARCH_THRESHOLD", 0.30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AI_API_KEY")
	v.BindEnv("AI_BASE_URL")
	v.BindEnv("AI_MODEL")
	v.BindEnv("AI_MAX_ATTEMPTS")
	v.BindEnv("AI_REQUEST_TIMEOUT")
	v.BindEnv("EMBED_BASE_URL")
	v.BindEnv("EMBED_API_KEY")
	v.BindEnv("EMBED_MODEL")
	v.BindEnv("EMBED_DIM")
	v.BindEnv("EMBED_WORKERS")
	v.BindEnv("SEARCH_THRESHOLD")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// an AUTH_JWT_SECRET is required so that real bearer authentication is
// enforced, and the tunable pipeline knobs must stay within sane ranges.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthJWTSecret == "" {
		return fmt.Errorf(
			"AUTH_JWT_SECRET must be set when ENV is %q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.AIMaxAttempts < 1 {
		return fmt.Errorf("AI_MAX_ATTEMPTS must be at least 1, got %d", c.AIMaxAttempts)
	}
	if c.SearchThreshold < -1 || c.SearchThreshold >= 1 {
		return fmt.Errorf("SEARCH_THRESHOLD must be in [-1, 1), got %g", c.SearchThreshold)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be positive, got %d", c.EmbedDim)
	}
	if c.EmbedWorkers < 1 {
		return fmt.Errorf("EMBED_WORKERS must be at least 1, got %d", c.EmbedWorkers)
	}
	return nil
}
