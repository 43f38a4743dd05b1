// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PoolConfig describes one simulated constant-product pool.
type PoolConfig struct {
	TokenA   string `mapstructure:"token_a"`
	TokenB   string `mapstructure:"token_b"`
	ReserveA uint64 `mapstructure:"reserve_a"`
	ReserveB uint64 `mapstructure:"reserve_b"`
}

type Config struct {
	StateFile          string        `mapstructure:"state_file"`
	CreateStateFile    bool          `mapstructure:"create_state_if_missing"`
	Workers            int           `mapstructure:"workers"`
	Retries            int           `mapstructure:"retries"`
	RetryDelayMS       int           `mapstructure:"retry_delay"`
	RetryDelay         time.Duration `mapstructure:"-"`
	DebugLogging       bool          `mapstructure:"debug_logging"`
	LogFile            string        `mapstructure:"log_file"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
	BackendLatencyMS   int           `mapstructure:"backend_latency"`
	BackendLatency     time.Duration `mapstructure:"-"`
	BackendFailureRate float64       `mapstructure:"backend_failure_rate"`
	Pools              []PoolConfig  `mapstructure:"pools"`
}

const (
	DefaultStateFile  = "simulation/pump_token.json"
	DefaultWorkers    = 5
	DefaultRetries    = 3
	DefaultRetryDelay = 500
)

// LoadConfig reads the file at path, applies defaults and PUMPSIM_* overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"state_file":              DefaultStateFile,
		"create_state_if_missing": false,
		"workers":                 DefaultWorkers,
		"retries":                 DefaultRetries,
		"retry_delay":             DefaultRetryDelay,
		"debug_logging":           false,
		"log_file":                "",
		"metrics_addr":            "",
		"backend_latency":         0,
		"backend_failure_rate":    0.0,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("PUMPSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	cfg.RetryDelay = time.Duration(cfg.RetryDelayMS) * time.Millisecond
	cfg.BackendLatency = time.Duration(cfg.BackendLatencyMS) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.StateFile) == "" {
		return errors.New("state_file is required")
	}
	if c.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if c.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if c.RetryDelayMS < 0 {
		return errors.New("invalid retry_delay")
	}
	if c.BackendLatencyMS < 0 {
		return errors.New("invalid backend_latency")
	}
	if c.BackendFailureRate < 0 || c.BackendFailureRate >= 1 {
		return errors.New("backend_failure_rate must be in [0, 1)")
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics_addr: %w", err)
		}
	}
	for i, p := range c.Pools {
		if p.TokenA == "" || p.TokenB == "" {
			return fmt.Errorf("pools[%d]: token_a and token_b are required", i)
		}
		if p.ReserveA == 0 || p.ReserveB == 0 {
			return fmt.Errorf("pools[%d]: reserves must be positive", i)
		}
	}
	return nil
}
