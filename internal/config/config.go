package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. RADISWAP_PG_DSN.
const EnvPrefix = "RADISWAP"

// ReplayConfig holds settings for the replay command.
type ReplayConfig struct {
	Input             string
	Out               string
	Failed            string
	Checkpoint        string
	CheckpointEnabled bool
	BatchSize         uint64
	PGDSN             string
	MaxRetries        int
	RetryBackoff      time.Duration
	MetricsAddr       string
	Seed              string
	LogLevel          string
}

// QuoteConfig holds settings for the quote command.
type QuoteConfig struct {
	ReserveIn  string
	ReserveOut string
	Amount     string
	Fee        string
	LogLevel   string
}

// MigrateConfig holds settings for the migrate command.
type MigrateConfig struct {
	PGDSN    string
	LogLevel string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"out":                "./data/receipts.jsonl",
		"failed":             "./data/failed.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"batch-size":         uint64(500),
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"seed":               "radiswap",
		"log-level":          "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		Input:             v.GetString("in"),
		Out:               v.GetString("out"),
		Failed:            v.GetString("failed"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		BatchSize:         v.GetUint64("batch-size"),
		PGDSN:             v.GetString("pg-dsn"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MetricsAddr:       v.GetString("metrics-addr"),
		Seed:              v.GetString("seed"),
		LogLevel:          v.GetString("log-level"),
	}
	if cfg.Input == "" {
		return ReplayConfig{}, fmt.Errorf("input path is required")
	}
	if cfg.BatchSize == 0 {
		return ReplayConfig{}, fmt.Errorf("batch-size must be greater than zero")
	}
	return cfg, nil
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"fee":       "0",
		"log-level": "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		ReserveIn:  v.GetString("reserve-in"),
		ReserveOut: v.GetString("reserve-out"),
		Amount:     v.GetString("amount"),
		Fee:        v.GetString("fee"),
		LogLevel:   v.GetString("log-level"),
	}
	var missing []string
	for _, key := range []string{"reserve-in", "reserve-out", "amount"} {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return QuoteConfig{}, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// LoadMigrate merges config file, environment variables, and flags into MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{"log-level": "info"})
	if err != nil {
		return MigrateConfig{}, err
	}

	cfg := MigrateConfig{
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.PGDSN == "" {
		return MigrateConfig{}, fmt.Errorf("pg dsn is required")
	}
	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}
