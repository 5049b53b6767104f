// Package httpapi provides the poll-based HTTP REST API: collaborators
// start a battle run, then poll the run ID until the completed result is
// published.
package httpapi

import (
	"paperduel/internal/domain"
)

// StartRunResponse acknowledges a started battle run.
type StartRunResponse struct {
	RunID    string `json:"runId"`
	BattleID string `json:"battleId"`
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
}

// QueuedResponse is returned while a polled run has not published a result.
type QueuedResponse struct {
	Status string `json:"status"`
}

// DataResponse holds the bar series for one symbol.
type DataResponse struct {
	Symbol string       `json:"symbol"`
	Bars   []domain.Bar `json:"bars"`
}

// SymbolsResponse lists the symbols with loadable bar data.
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// RunsResponse lists stored run IDs.
type RunsResponse struct {
	Runs []string `json:"runs"`
}

// RunSummaryJSON is the compact run view embedded in the profile.
type RunSummaryJSON struct {
	RunID     string  `json:"runId"`
	FinalPnl  float64 `json:"finalPnl"`
	ReturnPct float64 `json:"returnPct"`
	Status    string  `json:"status"`
}

// ProfileResponse is the demo user profile.
type ProfileResponse struct {
	Username   string           `json:"username"`
	Capital    float64          `json:"capital"`
	RecentRuns []RunSummaryJSON `json:"recentRuns"`
}

// BattleJSON describes one joinable battle.
type BattleJSON struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Symbol         string  `json:"symbol"`
	Status         string  `json:"status"`
	MaxDrawdownPct float64 `json:"maxDrawdownPct"`
	MaxTrades      int     `json:"maxTrades"`
}

// BattlesResponse lists battles the demo user has joined.
type BattlesResponse struct {
	Battles []BattleJSON `json:"battles"`
}
