package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Config holds everything the API needs at startup.
type Config struct {
	AppPort     string `envconfig:"APP_PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"0s"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DefaultCurrency string          `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	DefaultTaxRate  decimal.Decimal `envconfig:"DEFAULT_TAX_RATE" default:"0"`
	DefaultLocale   string          `envconfig:"DEFAULT_LOCALE" default:"en-US"`
}

// Load reads an optional .env file from the working directory and then decodes the
// process environment. Values already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process environment")
	}
	if cfg.DefaultTaxRate.IsNegative() || cfg.DefaultTaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("DEFAULT_TAX_RATE must be a fraction between 0 and 1, got %s", cfg.DefaultTaxRate)
	}
	cfg.DefaultCurrency = strings.ToUpper(cfg.DefaultCurrency)
	return &cfg, nil
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(cfg *Config) (*log.Logger, error) {
	logger := log.New()
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid LOG_LEVEL %q", cfg.LogLevel)
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.LogFormat) {
	case "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger, nil
}
