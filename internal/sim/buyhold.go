package sim

import (
	"errors"

	"paperduel/internal/domain"
)

// ErrSeriesTooShort indicates a bar series with fewer than 2 bars, which
// cannot host an entry and an exit.
var ErrSeriesTooShort = errors.New("bar series too short for a run")

// RunBuyHold executes the deterministic buy-and-hold strategy: buy one
// contract at the first bar's open and sell at the last bar's close, slippage
// against the trader on both fills. The equity curve holds one sample per
// bar, marking the open position to each close; the final sample is
// overridden to the realized result so the last point reflects actual exit
// economics rather than an unslipped mark.
func RunBuyHold(runID string, bars []domain.Bar, c Contract, capital float64) (*domain.RunResult, error) {
	if len(bars) < 2 {
		return nil, ErrSeriesTooShort
	}

	entry := bars[0]
	exit := bars[len(bars)-1]

	entryFill := c.Fill(entry.Timestamp, domain.SideBuy, 1, entry.Open)
	exitFill := c.Fill(exit.Timestamp, domain.SideSell, 1, exit.Close)

	points := exitFill.Price - entryFill.Price
	finalPnl := Round2(points*c.Multiplier - entryFill.Commission - exitFill.Commission)

	var curve Curve
	for _, bar := range bars {
		holdPnl := (bar.Close - entryFill.Price) * c.Multiplier
		curve.Append(bar.Timestamp, capital+holdPnl)
	}
	curve.SetLast(capital + finalPnl)

	trades := []domain.Fill{entryFill, exitFill}
	return Summarize(runID, capital, trades, curve.Samples()), nil
}
