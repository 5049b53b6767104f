// Package domain defines the core types shared across the paperduel
// simulation engine: bars, order intents, fills, equity samples, and run
// results.
package domain

import "time"

// Side is the direction of an order or fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Direction returns +1 for BUY and -1 for SELL.
func (s Side) Direction() int {
	if s == SideSell {
		return -1
	}
	return 1
}

// Opposite returns the opposing side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// RunStatus is the lifecycle state of a simulation run as seen by pollers.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
)

// Bar is one OHLC price observation for a fixed time interval. Bars are
// immutable once loaded; series are ordered by non-decreasing timestamp.
type Bar struct {
	Symbol    string    `json:"symbol,omitempty"`
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// OrderIntent is a request to execute a market order. It is consumed
// immediately by the fill model and never persisted.
type OrderIntent struct {
	Side Side
	Qty  int
}

// Fill is the realized execution of an order intent. Price is rounded to two
// decimals at fill time; fills are appended to an ordered trade log and never
// mutated afterwards.
type Fill struct {
	Timestamp  time.Time `json:"t"`
	Side       Side      `json:"side"`
	Qty        int       `json:"qty"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
}

// EquitySample is one mark-to-market equity observation:
// cash + position × last close × multiplier.
type EquitySample struct {
	Timestamp time.Time `json:"t"`
	Equity    float64   `json:"equity"`
}

// RunResult is the terminal artifact of a simulation run. It is created once
// per run and immutable after Status becomes StatusCompleted. Trades and
// EquityCurve are time-ordered, matching the bar series order.
type RunResult struct {
	RunID          string         `json:"runId"`
	FinalPnl       float64        `json:"finalPnl"`
	ReturnPct      float64        `json:"returnPct"`
	MaxDrawdownPct float64        `json:"maxDrawdownPct"`
	Trades         []Fill         `json:"trades"`
	EquityCurve    []EquitySample `json:"equityCurve"`
	Status         RunStatus      `json:"status"`
}

// Clone returns a deep copy of the result. Stores hand out clones so callers
// can never mutate a published run.
func (r *RunResult) Clone() *RunResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Trades = make([]Fill, len(r.Trades))
	copy(out.Trades, r.Trades)
	out.EquityCurve = make([]EquitySample, len(r.EquityCurve))
	copy(out.EquityCurve, r.EquityCurve)
	return &out
}
