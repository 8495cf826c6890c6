package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Search  SearchConfig
	Redis   RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POSTERM_APP_ENV" required:"true"`
	Port         string `envconfig:"POSTERM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POSTERM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSTERM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points the terminal at the store backend that owns the
// catalog, the customer directory, and invoice persistence.
type BackendConfig struct {
	BaseURL string        `envconfig:"POSTERM_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"POSTERM_BACKEND_TIMEOUT" default:"15s"`
}

func (b BackendConfig) validate() error {
	base := strings.TrimSpace(b.BaseURL)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("%s must be an absolute http(s) url", EnvBackendBaseURL)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	return nil
}

// SearchConfig tunes the catalog lookup behaviour. Defaults mirror the
// terminal UI: a 400ms quiet window and a two character minimum query.
type SearchConfig struct {
	MinQueryLength    int           `envconfig:"POSTERM_SEARCH_MIN_QUERY_LENGTH" default:"2"`
	DebounceWindow    time.Duration `envconfig:"POSTERM_SEARCH_DEBOUNCE_WINDOW" default:"400ms"`
	InitialListingTTL time.Duration `envconfig:"POSTERM_SEARCH_INITIAL_LISTING_TTL" default:"5m"`
}

// RedisConfig is optional; when URL is empty the catalog cache stays
// in-process only.
type RedisConfig struct {
	URL          string        `envconfig:"POSTERM_REDIS_URL"`
	PoolSize     int           `envconfig:"POSTERM_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"POSTERM_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"POSTERM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSTERM_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"POSTERM_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}
