package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	HTTPServer HTTPServer
	Upstream   Upstream
	Retry      Retry
	Cache      Cache
	Redis      Redis
	RateLimit  RateLimit
	Policy     Policy
	Log        Log
}

type HTTPServer struct {
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" env-default:"2m"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	// TrustProxy honours X-Real-IP/X-Forwarded-For. Enable only behind a
	// proxy that overwrites them, since the rate limiter keys on the result.
	TrustProxy bool `env:"HTTP_TRUST_PROXY" env-default:"false"`
}

// Upstream describes the rates provider. Timeout bounds a single attempt.
type Upstream struct {
	BaseURL    string        `env:"UPSTREAM_BASE_URL" env-default:"https://api.frankfurter.app"`
	LatestPath string        `env:"UPSTREAM_LATEST_PATH" env-default:"latest"`
	Timeout    time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"10s"`
}

type Retry struct {
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" env-default:"3"`
	BackoffStep time.Duration `env:"RETRY_BACKOFF_STEP" env-default:"1s"`
}

type Cache struct {
	Backend       string        `env:"CACHE_BACKEND" env-default:"memory"`
	LatestTTL     time.Duration `env:"CACHE_LATEST_TTL" env-default:"10m"`
	HistoricalTTL time.Duration `env:"CACHE_HISTORICAL_TTL" env-default:"30m"`
	SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" env-default:"1m"`
	WarmInterval  time.Duration `env:"CACHE_WARM_INTERVAL" env-default:"5m"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Prefix   string `env:"REDIS_PREFIX" env-default:"ratesconverter:"`
}

type RateLimit struct {
	Enabled bool    `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RPS     float64 `env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst   int     `env:"RATE_LIMIT_BURST" env-default:"10"`
}

type Policy struct {
	RestrictedCurrencies string `env:"RESTRICTED_CURRENCIES" env-default:"TRY,PLN,THB,MXN"`
	WarmCurrencies       string `env:"CACHE_WARM_CURRENCIES"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// NewConfig reads .env (if present) and the process environment.
func NewConfig() (*Config, error) {
	const op = "config.NewConfig"

	cfg := &Config{}

	_ = godotenv.Load(".env")

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, op)
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return errors.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Retry.MaxAttempts < 1 {
		return errors.Errorf("retry max attempts must be positive, got %d", c.Retry.MaxAttempts)
	}

	if c.Upstream.BaseURL == "" {
		return errors.New("upstream base url is empty")
	}

	if c.Cache.SweepInterval <= 0 {
		return errors.Errorf("cache sweep interval must be positive, got %s", c.Cache.SweepInterval)
	}

	if len(c.Split("WarmCurrencies")) > 0 && c.Cache.WarmInterval <= 0 {
		return errors.Errorf("cache warm interval must be positive, got %s", c.Cache.WarmInterval)
	}

	return nil
}

// Split returns the comma separated values of a string field of Policy.
func (c *Config) Split(fieldName string) []string {
	v := reflect.ValueOf(&c.Policy).Elem()
	f := v.FieldByName(fieldName)
	if !f.IsValid() || f.Kind() != reflect.String {
		return nil
	}
	str := f.String()
	if str == "" {
		return nil
	}

	parts := strings.Split(str, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
