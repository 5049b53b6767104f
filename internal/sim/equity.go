package sim

import (
	"math"
	"time"

	"paperduel/internal/domain"
)

// Curve is an append-only, time-ordered equity curve.
type Curve struct {
	samples []domain.EquitySample
}

// Append records one equity sample.
func (c *Curve) Append(ts time.Time, equity float64) {
	c.samples = append(c.samples, domain.EquitySample{Timestamp: ts, Equity: equity})
}

// SetLast overrides the most recent sample's equity. The buy-and-hold run
// uses it to make the final point reflect realized, not unrealized, P&L.
func (c *Curve) SetLast(equity float64) {
	if len(c.samples) > 0 {
		c.samples[len(c.samples)-1].Equity = equity
	}
}

// Samples returns the recorded samples in order.
func (c *Curve) Samples() []domain.EquitySample {
	return c.samples
}

// Len returns the number of samples.
func (c *Curve) Len() int {
	return len(c.samples)
}

// MaxDrawdown computes the maximum peak-to-trough decline over the samples
// as a fraction of the running peak. The peak starts at negative infinity,
// so the first sample always sets it and contributes zero drawdown. The
// result is never negative.
func MaxDrawdown(samples []domain.EquitySample) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, s := range samples {
		if s.Equity > peak {
			peak = s.Equity
		}
		if dd := (peak - s.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
