package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is shared by the console CLI and the auth stub. Each binary reads
// the whole struct and uses the part it needs.
type Config struct {
	APIBase          string        `env:"API_BASE,           default=http://localhost:8000" validate:"required,url"`
	APITimeout       time.Duration `env:"API_TIMEOUT,        default=30s"                   validate:"gt=0"`
	DemoLoginEnabled bool          `env:"DEMO_LOGIN_ENABLED, default=true"`
	LogLevel         string        `env:"LOG_LEVEL,          default=info"                  validate:"oneof=trace debug info warn warning error"`
	LogPretty        bool          `env:"LOG_PRETTY,         default=false"`

	Stub  StubConfig
	Redis RedisConfig
}

type StubConfig struct {
	Addr              string        `env:"STUB_ADDR,           default=:8000"         validate:"required"`
	JWTSecret         string        `env:"JWT_SECRET,          default=dev-secret"    validate:"required"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL,    default=30m"           validate:"gt=0"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL,   default=168h"          validate:"gt=0"`
	RefreshCookieName string        `env:"REFRESH_COOKIE_NAME, default=refresh_token" validate:"required"`
	CookieSecure      bool          `env:"COOKIE_SECURE,       default=false"`
	CORSOrigins       []string      `env:"CORS_ORIGINS,        default=http://localhost:5173"`
	AccountsFile      string        `env:"STUB_ACCOUNTS_FILE"`
}

// RedisConfig selects the refresh store. An empty Addr keeps sessions in
// process memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0" validate:"gte=0"`
}

// Load reads a .env file when one is present, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from an arbitrary lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for main packages.
func MustLoad(ctx context.Context) *Config {
	cfg, err := Load(ctx)
	if err != nil {
		panic(err)
	}
	return cfg
}
