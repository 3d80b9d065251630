package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// DebugMode enables verbose logging of stream traffic.
var DebugMode bool

type Config struct {
	Exchange    string   `envconfig:"EXCHANGE" default:"bitfinex"`
	Pairs       []string `envconfig:"PAIRS" default:"btc_usd"`
	MetricsAddr string   `envconfig:"METRICS_ADDR" default:":8080"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	Debug       bool     `envconfig:"DEBUG" default:"false"`

	// Order submission boundary.
	SubmitMaxAttempts int     `envconfig:"SUBMIT_MAX_ATTEMPTS" default:"10"`
	RestRatePerMinute float64 `envconfig:"REST_RATE_PER_MINUTE" default:"60"`
	RestBurst         int     `envconfig:"REST_BURST" default:"8"`
}

func Load() (*Config, error) {
	// Not an error: production deployments configure via real env vars.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("bridge", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	DebugMode = cfg.Debug
	return cfg, nil
}
