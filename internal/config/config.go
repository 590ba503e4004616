// Package config loads the engine's tunable knobs through viper, following
// the cobra+viper command-tree convention used across the retrieval pack
// (luxfi-consensus's cmd/consensus, SPEC_FULL.md §2.3) rather than a
// bespoke flag parser.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds every tunable the engine reads at startup. Defaults match
// the values consensus.c hardcodes for its two periodic tasks and its
// backoff window (spec.md §4.6/§9).
type Config struct {
	// NodeID is this process's fixed-width cluster identity, before
	// padding (internal/cluster.NewID pads it).
	NodeID string `mapstructure:"node_id"`

	// ShortTick is the interval between short periodic tasks (watermark
	// gossip + reclaim).
	ShortTick time.Duration `mapstructure:"short_tick"`
	// LongTick is the interval between long periodic tasks (anti-entropy
	// rebroadcast).
	LongTick time.Duration `mapstructure:"long_tick"`

	// BackoffMin/BackoffMax bound the randomized delay before a denied
	// proposer retries (consensus.c's rand()-based reschedule).
	BackoffMin time.Duration `mapstructure:"backoff_min"`
	BackoffMax time.Duration `mapstructure:"backoff_max"`

	// MetricsAddr is the address the prometheus /metrics endpoint binds
	// to, when running as a daemon.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Default returns the engine's out-of-the-box configuration.
func Default() Config {
	return Config{
		ShortTick:   100 * time.Millisecond,
		LongTick:    1 * time.Second,
		BackoffMin:  10 * time.Millisecond,
		BackoffMax:  200 * time.Millisecond,
		MetricsAddr: ":9090",
	}
}

// Load reads configuration from v, falling back to Default for any key
// that was never set, and validates the result.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	v.SetDefault("short_tick", cfg.ShortTick)
	v.SetDefault("long_tick", cfg.LongTick)
	v.SetDefault("backoff_min", cfg.BackoffMin)
	v.SetDefault("backoff_max", cfg.BackoffMax)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the engine depends on at startup.
func (c Config) Validate() error {
	if c.BackoffMin <= 0 {
		return errors.New("config: backoff_min must be positive")
	}
	if c.BackoffMax < c.BackoffMin {
		return errors.New("config: backoff_max must be >= backoff_min")
	}
	if c.ShortTick <= 0 || c.LongTick <= 0 {
		return errors.New("config: short_tick and long_tick must be positive")
	}
	return nil
}
