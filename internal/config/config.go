package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                 string `mapstructure:"ENV"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32  `mapstructure:"DB_MIN_CONNS"`
	MetricsTextfile     string `mapstructure:"METRICS_TEXTFILE"`
	TimelineCutoffDate  string `mapstructure:"TIMELINE_CUTOFF_DATE"`
	InductionOffsetDays int    `mapstructure:"INDUCTION_OFFSET_DAYS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("TIMELINE_CUTOFF_DATE", "2023-01-01")
	v.SetDefault("INDUCTION_OFFSET_DAYS", 14)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("METRICS_TEXTFILE")
	v.BindEnv("TIMELINE_CUTOFF_DATE")
	v.BindEnv("INDUCTION_OFFSET_DAYS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// CutoffDate parses TIMELINE_CUTOFF_DATE. Summaries only consider patients
// whose first timeline event falls on or after this date.
func (c *Config) CutoffDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.TimelineCutoffDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("TIMELINE_CUTOFF_DATE: %w", err)
	}
	return t, nil
}

// Validate checks that the configuration is safe to run with.
func (c *Config) Validate() error {
	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.DBMaxConns, c.DBMinConns)
	}
	if c.InductionOffsetDays < 0 {
		return fmt.Errorf("INDUCTION_OFFSET_DAYS must not be negative, got %d", c.InductionOffsetDays)
	}
	if _, err := c.CutoffDate(); err != nil {
		return err
	}
	return nil
}
