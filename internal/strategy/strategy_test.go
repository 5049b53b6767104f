package strategy

import (
	"context"
	"testing"
	"time"

	"paperduel/internal/domain"
	"paperduel/internal/sim"
)

// stubRunner is a minimal Runner implementation used in registry tests.
type stubRunner struct {
	name string
}

func (s *stubRunner) Name() string { return s.name }
func (s *stubRunner) Run(_ context.Context, runID string, _ []domain.Bar, _ sim.Contract, _ float64) (*domain.RunResult, error) {
	return &domain.RunResult{RunID: runID, Status: domain.StatusCompleted}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubRunner{name: "test-strategy"})

	got, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered runner")
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Get returned runner with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered runner")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubRunner{name: "alpha"})
	r.Register(&stubRunner{name: "beta"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range []string{"buy-hold", "sma-cross"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("default registry missing %q", name)
		}
	}
}

func barSeries(opens, closes []float64) []domain.Bar {
	base := time.Date(2023, 1, 3, 14, 31, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(opens))
	for i := range opens {
		hi, lo := opens[i], closes[i]
		if lo > hi {
			hi, lo = lo, hi
		}
		bars[i] = domain.Bar{
			Symbol:    "ES",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      opens[i], High: hi, Low: lo, Close: closes[i],
		}
	}
	return bars
}

func TestBuyHoldRunnerMatchesSim(t *testing.T) {
	contract := sim.Contract{Symbol: "ES", Multiplier: 50, TickSize: 0.25, SlippageTicks: 0.5, Commission: 1.25}
	bars := barSeries(
		[]float64{3860.25, 3861.00, 3860.50},
		[]float64{3860.75, 3860.25, 3861.25},
	)

	runner := NewBuyHold()
	got, err := runner.Run(context.Background(), "run-1", bars, contract, 100000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want, err := sim.RunBuyHold("run-1", bars, contract, 100000)
	if err != nil {
		t.Fatalf("RunBuyHold: %v", err)
	}
	if got.FinalPnl != want.FinalPnl || got.ReturnPct != want.ReturnPct {
		t.Errorf("runner result (%v, %v) != direct result (%v, %v)",
			got.FinalPnl, got.ReturnPct, want.FinalPnl, want.ReturnPct)
	}
	if got.RunID != "run-1" {
		t.Errorf("runId = %q, want run-1", got.RunID)
	}
}

func TestSMACrossEntersAfterCrossAndFlattens(t *testing.T) {
	// Frictionless one-point contract so fill prices equal the raw bar
	// prices and PnL is the price difference.
	contract := sim.Contract{Symbol: "T", Multiplier: 1, TickSize: 0.25, SlippageTicks: 0, Commission: 0}

	// Flat at 10, then rising: the 2-bar SMA crosses above the 3-bar SMA
	// at index 3, so the entry fills at bar 4's open.
	opens := []float64{10, 10, 10, 10, 12, 14}
	closes := []float64{10, 10, 10, 12, 14, 15}
	bars := barSeries(opens, closes)

	runner := NewSMACross(2, 3)
	res, err := runner.Run(context.Background(), "run-sma", bars, contract, 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want entry + exit", len(res.Trades))
	}
	entry, exit := res.Trades[0], res.Trades[1]
	if entry.Side != domain.SideBuy || entry.Price != 12 {
		t.Errorf("entry = %+v, want BUY at 12 (bar 4 open)", entry)
	}
	if exit.Side != domain.SideSell || exit.Price != 15 {
		t.Errorf("exit = %+v, want SELL at 15 (final close)", exit)
	}

	// Net position over the trade log is flat.
	net := 0
	for _, f := range res.Trades {
		net += f.Side.Direction() * f.Qty
	}
	if net != 0 {
		t.Errorf("net position = %d, want 0", net)
	}

	if res.FinalPnl != 3 {
		t.Errorf("FinalPnl = %v, want 3 (15 - 12)", res.FinalPnl)
	}
	if len(res.EquityCurve) != len(bars) {
		t.Errorf("equity curve has %d samples, want %d", len(res.EquityCurve), len(bars))
	}
	if res.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", res.Status)
	}
}

func TestSMACrossNoSignalStaysFlat(t *testing.T) {
	contract := sim.Contract{Symbol: "T", Multiplier: 1, TickSize: 0.25, SlippageTicks: 0, Commission: 0}
	flat := []float64{10, 10, 10, 10, 10, 10}
	res, err := NewSMACross(2, 3).Run(context.Background(), "run-flat", barSeries(flat, flat), contract, 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("flat series produced %d trades, want 0", len(res.Trades))
	}
	if res.FinalPnl != 0 {
		t.Errorf("FinalPnl = %v, want 0", res.FinalPnl)
	}
}

func TestSMACrossRejectsBadInput(t *testing.T) {
	contract := sim.Contract{Symbol: "T", Multiplier: 1, TickSize: 0.25}

	if _, err := NewSMACross(3, 2).Run(context.Background(), "x", barSeries([]float64{1, 2}, []float64{1, 2}), contract, 1000); err == nil {
		t.Error("inverted periods should be rejected")
	}
	if _, err := NewSMACross(2, 3).Run(context.Background(), "x", barSeries([]float64{1}, []float64{1}), contract, 1000); err == nil {
		t.Error("single-bar series should be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSMACross(2, 3).Run(ctx, "x", barSeries([]float64{1, 2, 3}, []float64{1, 2, 3}), contract, 1000); err == nil {
		t.Error("cancelled context should abort the run")
	}
}
