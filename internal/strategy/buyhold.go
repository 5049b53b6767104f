package strategy

import (
	"context"

	"paperduel/internal/domain"
	"paperduel/internal/sim"
)

// Compile-time interface check.
var _ Runner = (*BuyHold)(nil)

// BuyHold is the benchmark strategy: one contract bought at the first bar's
// open and sold at the last bar's close.
type BuyHold struct{}

// NewBuyHold creates the buy-and-hold runner.
func NewBuyHold() *BuyHold {
	return &BuyHold{}
}

// Name returns "buy-hold".
func (s *BuyHold) Name() string {
	return "buy-hold"
}

// Run executes buy-and-hold over the full series.
func (s *BuyHold) Run(_ context.Context, runID string, bars []domain.Bar, contract sim.Contract, capital float64) (*domain.RunResult, error) {
	return sim.RunBuyHold(runID, bars, contract, capital)
}
