package strategy

import (
	"context"
	"fmt"

	"paperduel/internal/domain"
	"paperduel/internal/sim"
)

// Compile-time interface check.
var _ Runner = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It targets
// a long one-contract position while the short-period SMA is above the
// long-period SMA after a crossover, and a short position after a cross
// below. Signals detected at a bar's close execute at the next bar's open;
// any open position is closed at the final bar's close.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross runner with the specified short and
// long moving average periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Run replays the series through the crossover rules.
func (s *SMACross) Run(ctx context.Context, runID string, bars []domain.Bar, contract sim.Contract, capital float64) (*domain.RunResult, error) {
	if s.shortPeriod < 1 || s.longPeriod <= s.shortPeriod {
		return nil, fmt.Errorf("invalid SMA periods %d/%d", s.shortPeriod, s.longPeriod)
	}
	if len(bars) < 2 {
		return nil, sim.ErrSeriesTooShort
	}

	ledger := sim.NewLedger(contract.Multiplier, capital)
	var curve sim.Curve
	var trades []domain.Fill

	closes := make([]float64, 0, len(bars))
	target := 0

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Execute the position change signalled on the previous close at
		// this bar's open.
		if diff := target - ledger.Position(); diff != 0 {
			side, qty := domain.SideBuy, diff
			if diff < 0 {
				side, qty = domain.SideSell, -diff
			}
			fill := contract.Fill(bar.Timestamp, side, qty, bar.Open)
			ledger.Apply(fill)
			trades = append(trades, fill)
		}

		closes = append(closes, bar.Close)
		curve.Append(bar.Timestamp, ledger.Equity(bar.Close))

		// No new signal off the final bar; there is no open left to fill at.
		if i+1 >= len(bars) {
			break
		}
		if len(closes) <= s.longPeriod {
			continue
		}
		shortNow, longNow := sma(closes, s.shortPeriod), sma(closes, s.longPeriod)
		prev := closes[:len(closes)-1]
		shortPrev, longPrev := sma(prev, s.shortPeriod), sma(prev, s.longPeriod)

		switch {
		case shortPrev <= longPrev && shortNow > longNow:
			target = 1
		case shortPrev >= longPrev && shortNow < longNow:
			target = -1
		}
	}

	// Close any remaining position at the final close.
	if pos := ledger.Position(); pos != 0 {
		last := bars[len(bars)-1]
		side, qty := domain.SideSell, pos
		if pos < 0 {
			side, qty = domain.SideBuy, -pos
		}
		fill := contract.Fill(last.Timestamp, side, qty, last.Close)
		ledger.Apply(fill)
		trades = append(trades, fill)
		curve.SetLast(ledger.Equity(last.Close))
	}

	return sim.Summarize(runID, capital, trades, curve.Samples()), nil
}

// sma averages the last n values of series. The caller guarantees
// len(series) >= n.
func sma(series []float64, n int) float64 {
	var sum float64
	for _, v := range series[len(series)-n:] {
		sum += v
	}
	return sum / float64(n)
}
