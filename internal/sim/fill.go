// Package sim implements the trade-simulation core: the market-order fill
// model, the position and cash ledger, equity-curve and drawdown tracking,
// the deterministic buy-and-hold run, and the run summarizer.
package sim

import (
	"math"
	"time"

	"paperduel/internal/domain"
)

// Contract holds the execution parameters for one instrument. Slippage always
// works against the trader: BUY pays up, SELL receives less.
type Contract struct {
	Symbol        string
	Multiplier    float64 // dollars per index point
	TickSize      float64 // index points per tick
	SlippageTicks float64 // slippage per market fill, in ticks
	Commission    float64 // dollars per side per contract
}

// SlippagePoints converts the slippage setting to index points.
func (c Contract) SlippagePoints() float64 {
	return c.SlippageTicks * c.TickSize
}

// Fill executes a market order of qty contracts against basePrice. The
// executed price is base + direction × slippage, rounded to two decimals at
// fill time; everything downstream uses the rounded price. The fee is the
// per-side commission times quantity.
func (c Contract) Fill(ts time.Time, side domain.Side, qty int, basePrice float64) domain.Fill {
	price := basePrice + float64(side.Direction())*c.SlippagePoints()
	return domain.Fill{
		Timestamp:  ts,
		Side:       side,
		Qty:        qty,
		Price:      Round2(price),
		Commission: c.Commission * float64(qty),
	}
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
