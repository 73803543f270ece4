// Package config loads server configuration from YAML with sensible defaults.
// Engine timing knobs live here, not in the content catalog: content packs
// describe the game world, config describes how this process runs it.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs to boot.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	ContentDir string `yaml:"content_dir"`
	SchemaDir  string `yaml:"schema_dir"`

	Engine Engine `yaml:"engine"`
	Tuning Tuning `yaml:"tuning"`
}

// Engine holds the tick-engine timing and economy configuration.
type Engine struct {
	TickIntervalMinutes int `yaml:"tick_interval_minutes"`
	MaxCatchupHours     int `yaml:"max_catchup_hours"`
	MinimumBalance      int `yaml:"minimum_balance"`

	// HeatPenaltyRate converts current heat into success-chance points lost.
	// 0.25 means a profile at heat 100 loses 25 points.
	HeatPenaltyRate float64 `yaml:"heat_penalty_rate"`

	// BackgroundIntervalSeconds controls how often the scheduler sweeps
	// profiles with automation enabled. Zero disables the sweep.
	BackgroundIntervalSeconds int `yaml:"background_interval_seconds"`
}

// Tuning holds concurrency parameters for high load.
type Tuning struct {
	EventChannelBuffer int `yaml:"event_channel_buffer"`
	ClientSendBuffer   int `yaml:"client_send_buffer"`
	DBMaxOpenConns     int `yaml:"db_max_open_conns"`
	DBMaxIdleConns     int `yaml:"db_max_idle_conns"`
}

// Default returns production defaults matching the original game balance.
func Default() *Config {
	numCPU := runtime.NumCPU()
	return &Config{
		ListenAddr: ":8080",
		DBPath:     "chief.db",
		ContentDir: "data",
		SchemaDir:  "schemas",
		Engine: Engine{
			TickIntervalMinutes:       5,
			MaxCatchupHours:           24,
			MinimumBalance:            100,
			HeatPenaltyRate:           0.25,
			BackgroundIntervalSeconds: 300,
		},
		Tuning: Tuning{
			EventChannelBuffer: 1024,
			ClientSendBuffer:   64,
			DBMaxOpenConns:     numCPU * 4,
			DBMaxIdleConns:     numCPU * 2,
		},
	}
}

// Load reads a YAML config file layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.TickIntervalMinutes <= 0 {
		return fmt.Errorf("tick_interval_minutes must be positive, got %d", c.Engine.TickIntervalMinutes)
	}
	if c.Engine.MaxCatchupHours <= 0 {
		return fmt.Errorf("max_catchup_hours must be positive, got %d", c.Engine.MaxCatchupHours)
	}
	if c.Engine.HeatPenaltyRate < 0 {
		return fmt.Errorf("heat_penalty_rate must not be negative, got %f", c.Engine.HeatPenaltyRate)
	}
	return nil
}

// TickInterval returns the tick interval as a duration.
func (e Engine) TickInterval() time.Duration {
	return time.Duration(e.TickIntervalMinutes) * time.Minute
}

// MaxCatchup returns the catch-up cap as a duration.
func (e Engine) MaxCatchup() time.Duration {
	return time.Duration(e.MaxCatchupHours) * time.Hour
}

// MaxCatchupTicks returns the maximum number of ticks one run may process.
func (e Engine) MaxCatchupTicks() int {
	return int(e.MaxCatchup() / e.TickInterval())
}
