package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/paperduel/data"
  runs_dir: "/tmp/paperduel/runs"
  sqlite_path: "/tmp/paperduel/paperduel.db"
  backend: "sqlite"
server:
  host: "127.0.0.1"
  port: 3001
logging:
  level: "debug"
  format: "text"
sim:
  starting_capital: 50000
  allow_sample_fallback: false
replay:
  seed_bars: 10
  default_speed_ms: 250
  max_drawdown_pct: 3
  max_trades: 20
assets:
  ES:
    multiplier: 50
    tick_size: 0.25
    slippage_ticks: 0.5
    commission: 1.25
    data_file: "data/es_minute.csv"
`)

	path := filepath.Join(t.TempDir(), "paperduel.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("RUNS_DIR")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("RUN_STORE")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("PORT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/paperduel/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/paperduel/data")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "sqlite")
	}

	// -- Server --
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if got := cfg.Addr(); got != "127.0.0.1:3001" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:3001")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	// -- Sim --
	if cfg.Sim.StartingCapital != 50000 {
		t.Errorf("Sim.StartingCapital = %f, want %f", cfg.Sim.StartingCapital, 50000.0)
	}
	if cfg.Sim.AllowSampleFallback {
		t.Error("Sim.AllowSampleFallback = true, want false")
	}

	// -- Replay --
	if cfg.Replay.SeedBars != 10 {
		t.Errorf("Replay.SeedBars = %d, want %d", cfg.Replay.SeedBars, 10)
	}
	if cfg.Replay.MaxDrawdownPct != 3 {
		t.Errorf("Replay.MaxDrawdownPct = %f, want %f", cfg.Replay.MaxDrawdownPct, 3.0)
	}

	// -- Assets --
	es, ok := cfg.Contract("ES")
	if !ok {
		t.Fatal("Contract(ES) not found")
	}
	if es.Multiplier != 50 || es.TickSize != 0.25 || es.SlippageTicks != 0.5 || es.Commission != 1.25 {
		t.Errorf("ES contract = %+v, want multiplier 50, tick 0.25, slippage 0.5, commission 1.25", es)
	}
	if _, ok := cfg.Contract("GC"); ok {
		t.Error("Contract(GC) should not be found")
	}
}

func TestDefaultAssets(t *testing.T) {
	cfg := Default()

	es, ok := cfg.Contract("ES")
	if !ok {
		t.Fatal("default config missing ES")
	}
	if es.Multiplier != 50 {
		t.Errorf("ES.Multiplier = %f, want 50", es.Multiplier)
	}

	nq, ok := cfg.Contract("NQ")
	if !ok {
		t.Fatal("default config missing NQ")
	}
	if nq.Multiplier != 20 {
		t.Errorf("NQ.Multiplier = %f, want 20", nq.Multiplier)
	}
	if cfg.Sim.StartingCapital != 100000 {
		t.Errorf("Sim.StartingCapital = %f, want 100000", cfg.Sim.StartingCapital)
	}
}

func TestLoadOrDefault(t *testing.T) {
	os.Setenv("PORT", "9999")
	defer os.Unsetenv("PORT")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault with missing file: %v", err)
	}
	if cfg.Sim.StartingCapital != 100000 {
		t.Errorf("StartingCapital = %f, want default 100000", cfg.Sim.StartingCapital)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want env override 9999", cfg.Server.Port)
	}

	// A present but malformed file is still an error.
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("storage: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrDefault(bad); err == nil {
		t.Error("LoadOrDefault should fail on malformed YAML")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
storage:
  data_dir: "/original/data"
logging:
  level: "info"
`)

	path := filepath.Join(t.TempDir(), "paperduel.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	os.Setenv("DATA_DIR", "/env/data")
	os.Setenv("LOG_LEVEL", "warn")
	os.Setenv("PORT", "8080")
	defer os.Unsetenv("DATA_DIR")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("PORT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q (env override)", cfg.Logging.Level, "warn")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d (env override)", cfg.Server.Port, 8080)
	}
	// runs_dir untouched by env, stays at default.
	if cfg.Storage.RunsDir != "runs" {
		t.Errorf("Storage.RunsDir = %q, want default %q", cfg.Storage.RunsDir, "runs")
	}
}
