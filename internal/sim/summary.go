package sim

import "paperduel/internal/domain"

// Summarize packages a trade log and equity curve into a completed RunResult.
// finalPnl is the last sample's equity minus starting capital, exactly;
// returnPct and maxDrawdownPct are rounded to two decimals from the already
// rounded finalPnl, not recomputed from unrounded intermediates.
func Summarize(runID string, capital float64, trades []domain.Fill, curve []domain.EquitySample) *domain.RunResult {
	finalPnl := 0.0
	if len(curve) > 0 {
		finalPnl = curve[len(curve)-1].Equity - capital
	}
	finalPnl = Round2(finalPnl)

	// Serialize empty trade logs as [], not null.
	if trades == nil {
		trades = []domain.Fill{}
	}

	return &domain.RunResult{
		RunID:          runID,
		FinalPnl:       finalPnl,
		ReturnPct:      Round2(finalPnl / capital * 100),
		MaxDrawdownPct: Round2(MaxDrawdown(curve) * 100),
		Trades:         trades,
		EquityCurve:    curve,
		Status:         domain.StatusCompleted,
	}
}
