// Package config loads engine configuration from environment variables
// with sane defaults. Every key can also be set through a config file
// when one is present in the working directory.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full engine configuration.
type Config struct {
	// Chain access
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	WSEndpoint  string `mapstructure:"ws_endpoint"`
	ProgramID   string `mapstructure:"program_id"`

	// Storage
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	NATSURL       string `mapstructure:"nats_url"`

	// Migration service
	MigrationURL string `mapstructure:"migration_url"`

	// Curve parameters
	VirtualReserveLamport float64 `mapstructure:"virtual_reserve_lamport"`
	CurveLimitLamport     float64 `mapstructure:"curve_limit_lamport"`
	TokenSupply           float64 `mapstructure:"token_supply"`
	DefaultDecimals       int     `mapstructure:"default_decimals"`

	// Backfill
	BackfillConcurrency int           `mapstructure:"backfill_concurrency"`
	BackfillLookback    time.Duration `mapstructure:"backfill_lookback"`
	BackfillSlotWindow  int64         `mapstructure:"backfill_slot_window"`

	// Live subscription
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// Caches and holders
	MaxSwapsKept    int           `mapstructure:"max_swaps_kept"`
	MaxHolders      int           `mapstructure:"max_holders"`
	HolderStaleness time.Duration `mapstructure:"holder_staleness"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	SweepBatch      int           `mapstructure:"sweep_batch"`

	// Observability
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`
}

// Load reads configuration from curve-engine.yaml (optional) and
// CURVE_*-prefixed environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("rpc_endpoint", "http://localhost:8899")
	v.SetDefault("ws_endpoint", "ws://localhost:8900")
	v.SetDefault("program_id", "")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("clickhouse_dsn", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("nats_url", "")
	v.SetDefault("migration_url", "")
	v.SetDefault("virtual_reserve_lamport", 1_000_000_000)
	v.SetDefault("curve_limit_lamport", 113_000_000_000)
	v.SetDefault("token_supply", 1e15)
	v.SetDefault("default_decimals", 6)
	v.SetDefault("backfill_concurrency", 20)
	v.SetDefault("backfill_lookback", 6*time.Hour)
	v.SetDefault("backfill_slot_window", 500)
	v.SetDefault("heartbeat_interval", 30*time.Second)
	v.SetDefault("max_swaps_kept", 1000)
	v.SetDefault("max_holders", 500)
	v.SetDefault("holder_staleness", 5*time.Minute)
	v.SetDefault("sweep_interval", 5*time.Minute)
	v.SetDefault("sweep_batch", 10)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log_level", "info")

	v.SetConfigName("curve-engine")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CURVE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields every run needs.
func (c *Config) Validate() error {
	if c.ProgramID == "" {
		return fmt.Errorf("program_id is required")
	}
	if c.RPCEndpoint == "" {
		return fmt.Errorf("rpc_endpoint is required")
	}
	return nil
}
