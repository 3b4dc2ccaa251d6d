package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Settings are the process-level knobs read from the environment. CLI flags
// override them.
type Settings struct {
	ConfigPath     string   `env:"FOODSEC_CONFIG" envDefault:"foodsecurityconfig.json"`
	StorageKind    string   `env:"FOODSEC_STORAGE" envDefault:"sqlite"`
	DSN            string   `env:"FOODSEC_DSN" envDefault:"data.db"`
	Addr           string   `env:"FOODSEC_ADDR" envDefault:":5000"`
	BatchSize      int      `env:"FOODSEC_BATCH_SIZE" envDefault:"1000"`
	ReadWorkers    int      `env:"FOODSEC_READ_WORKERS" envDefault:"4"`
	StrictCodes    bool     `env:"FOODSEC_STRICT_CODES" envDefault:"false"`
	CSVFiles       []string `env:"FOODSEC_CSV_FILES" envSeparator:"," envDefault:"../dec19pub.csv,../dec20pub.csv,../dec21pub.csv"`
	PushgatewayURL string   `env:"FOODSEC_PUSHGATEWAY_URL"`
	StatsdAddr     string   `env:"FOODSEC_STATSD_ADDR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadSettings returns Settings populated from the environment and defaults.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
