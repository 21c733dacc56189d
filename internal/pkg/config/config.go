package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/taskboard/internal/core/ratelimit"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	ActivityWorkers int `env:"ACTIVITY_WORKERS, default=4"`

	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Seed      SeedConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=taskboard"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// RateLimitConfig selects the counter store and the per-policy limits.
// Backend "memory" keeps counters per process; "redis" shares them.
type RateLimitConfig struct {
	Backend   string        `env:"RATE_LIMIT_BACKEND,    default=memory"`
	Sweep     string        `env:"RATE_LIMIT_SWEEP,      default=@every 5m"`
	Window    time.Duration `env:"RATE_LIMIT_WINDOW,     default=1m"`
	ReadMax   int           `env:"RATE_LIMIT_READ_MAX,   default=100"`
	CreateMax int           `env:"RATE_LIMIT_CREATE_MAX, default=20"`
	UpdateMax int           `env:"RATE_LIMIT_UPDATE_MAX, default=30"`
	DeleteMax int           `env:"RATE_LIMIT_DELETE_MAX, default=10"`
	LoginMax  int           `env:"RATE_LIMIT_LOGIN_MAX,  default=10"`
}

// SeedConfig creates the first admin on an empty users collection. Seeding
// is skipped when Email is empty.
type SeedConfig struct {
	Name     string `env:"SEED_ADMIN_NAME, default=Administrator"`
	Email    string `env:"SEED_ADMIN_EMAIL"`
	Password string `env:"SEED_ADMIN_PASSWORD"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimit.Backend))
	}
	if c.RateLimit.Window < time.Second {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be at least 1s"))
	}
	for name, n := range map[string]int{
		"RATE_LIMIT_READ_MAX":   c.RateLimit.ReadMax,
		"RATE_LIMIT_CREATE_MAX": c.RateLimit.CreateMax,
		"RATE_LIMIT_UPDATE_MAX": c.RateLimit.UpdateMax,
		"RATE_LIMIT_DELETE_MAX": c.RateLimit.DeleteMax,
		"RATE_LIMIT_LOGIN_MAX":  c.RateLimit.LoginMax,
	} {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Seed.Email != "" && c.Seed.Password == "" {
		errs = append(errs, errors.New("SEED_ADMIN_PASSWORD is required with SEED_ADMIN_EMAIL"))
	}
	return errors.Join(errs...)
}

// Policies builds the rate limit policy set.
func (c *RateLimitConfig) Policies() ratelimit.Policies {
	limit := func(n int) ratelimit.Config {
		return ratelimit.Config{Window: c.Window, MaxRequests: n}
	}
	return ratelimit.Policies{
		Read:   limit(c.ReadMax),
		Create: limit(c.CreateMax),
		Update: limit(c.UpdateMax),
		Delete: limit(c.DeleteMax),
		Login:  limit(c.LoginMax),
	}
}
