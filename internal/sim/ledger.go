package sim

import "paperduel/internal/domain"

// Ledger tracks net position and cash as fills are applied. It is owned
// exclusively by one simulation loop; fills are applied exactly once, in
// fill order, and position is never mutated outside Apply.
type Ledger struct {
	multiplier float64
	position   int // net contracts, long positive / short negative
	cash       float64
}

// NewLedger creates a ledger with the given contract multiplier and starting
// cash balance.
func NewLedger(multiplier, startingCash float64) *Ledger {
	return &Ledger{
		multiplier: multiplier,
		cash:       startingCash,
	}
}

// Apply updates cash and position for one fill. Buying spends cash, selling
// raises it; the commission is always subtracted. Position is unbounded in
// both directions.
func (l *Ledger) Apply(f domain.Fill) {
	dir := float64(f.Side.Direction())
	l.cash -= dir*f.Price*l.multiplier*float64(f.Qty) + f.Commission
	l.position += f.Side.Direction() * f.Qty
}

// Position returns the net contract count.
func (l *Ledger) Position() int {
	return l.position
}

// Cash returns the cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Equity marks the ledger to market: cash + position × lastClose × multiplier.
func (l *Ledger) Equity(lastClose float64) float64 {
	return l.cash + float64(l.position)*lastClose*l.multiplier
}
