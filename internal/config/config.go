package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the paperduel platform.
type Config struct {
	Storage Storage          `yaml:"storage"`
	Server  Server           `yaml:"server"`
	Logging Logging          `yaml:"logging"`
	Sim     SimConfig        `yaml:"sim"`
	Replay  ReplayConfig     `yaml:"replay"`
	Assets  map[string]Asset `yaml:"assets"`
}

// Storage holds paths for data and run persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	RunsDir    string `yaml:"runs_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	// Backend selects the run store: "file", "sqlite", or "memory".
	Backend string `yaml:"backend"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SimConfig defines simulation-wide parameters.
type SimConfig struct {
	StartingCapital float64 `yaml:"starting_capital"`
	// AllowSampleFallback publishes a canned sample result when a run fails
	// on data errors, so demo callers always get something to render. The
	// substitution is logged at warn level.
	AllowSampleFallback bool `yaml:"allow_sample_fallback"`
}

// ReplayConfig controls interactive replay sessions.
type ReplayConfig struct {
	SeedBars       int     `yaml:"seed_bars"`
	DefaultSpeedMs int     `yaml:"default_speed_ms"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	MaxTrades      int     `yaml:"max_trades"`
}

// Asset holds the contract parameters for one tradable instrument.
type Asset struct {
	Multiplier    float64 `yaml:"multiplier"`
	TickSize      float64 `yaml:"tick_size"`
	SlippageTicks float64 `yaml:"slippage_ticks"`
	Commission    float64 `yaml:"commission"`
	DataFile      string  `yaml:"data_file"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration: ES and NQ index futures with
// half-tick slippage and $1.25 per-side commission.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir: "data",
			RunsDir: "runs",
			Backend: "file",
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 3001,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Sim: SimConfig{
			StartingCapital:     100000,
			AllowSampleFallback: true,
		},
		Replay: ReplayConfig{
			SeedBars:       30,
			DefaultSpeedMs: 1000,
			MaxDrawdownPct: 5,
			MaxTrades:      100,
		},
		Assets: map[string]Asset{
			"ES": {
				Multiplier:    50,
				TickSize:      0.25,
				SlippageTicks: 0.5,
				Commission:    1.25,
				DataFile:      "data/es_minute.csv",
			},
			"NQ": {
				Multiplier:    20,
				TickSize:      0.25,
				SlippageTicks: 0.5,
				Commission:    1.25,
				DataFile:      "data/nq_minute.csv",
			},
		},
	}
}

// Load reads the YAML configuration file at the given path, merges it over
// the defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault behaves like Load, but a missing config file falls back to
// the defaults (still with environment overrides applied).
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	cfg = Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("RUNS_DIR"); v != "" {
		cfg.Storage.RunsDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("RUN_STORE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

// Contract returns the asset definition for a symbol, or false if the symbol
// is not configured.
func (c *Config) Contract(symbol string) (Asset, bool) {
	a, ok := c.Assets[symbol]
	return a, ok
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
