package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"paperduel/internal/config"
	"paperduel/internal/domain"
	"paperduel/internal/marketdata"
	"paperduel/internal/sim"
	"paperduel/internal/store"
	"paperduel/internal/strategy"
)

// BarSource provides bar series by symbol.
type BarSource interface {
	Bars(symbol string) ([]domain.Bar, error)
	Symbols() []string
}

// Server serves the battle-run HTTP API.
type Server struct {
	bars     BarSource
	runs     store.RunStore
	registry *strategy.Registry
	cfg      *config.Config
	log      *slog.Logger
}

// NewServer creates the API server.
func NewServer(bars BarSource, runs store.RunStore, registry *strategy.Registry, cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		bars:     bars,
		runs:     runs,
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /battle/{id}/run", s.handleStartRun)
	mux.HandleFunc("GET /run/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /data/{symbol}", s.handleData)
	mux.HandleFunc("GET /symbols", s.handleSymbols)
	mux.HandleFunc("GET /user/profile", s.handleProfile)
	mux.HandleFunc("GET /user/joined-battles", s.handleJoinedBattles)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// contractFor converts a configured asset to its simulation contract.
func contractFor(symbol string, a config.Asset) sim.Contract {
	return sim.Contract{
		Symbol:        symbol,
		Multiplier:    a.Multiplier,
		TickSize:      a.TickSize,
		SlippageTicks: a.SlippageTicks,
		Commission:    a.Commission,
	}
}

// handleStartRun launches a battle run in the background and returns the
// run ID immediately. The result is only visible through polling once the
// run completed.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")

	symbol := strings.ToUpper(r.URL.Query().Get("asset"))
	if symbol == "" {
		symbol = "ES"
	}
	asset, ok := s.cfg.Contract(symbol)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown asset %q", symbol))
		return
	}

	strategyName := r.URL.Query().Get("strategy")
	if strategyName == "" {
		strategyName = "buy-hold"
	}
	runner, ok := s.registry.Get(strategyName)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown strategy %q", strategyName))
		return
	}

	runID := uuid.NewString()
	s.log.Info("battle run started", "run", runID, "battle", battleID,
		"symbol", symbol, "strategy", strategyName)

	go s.executeRun(runID, symbol, runner, contractFor(symbol, asset))

	writeJSON(w, StartRunResponse{
		RunID:    runID,
		BattleID: battleID,
		Symbol:   symbol,
		Strategy: strategyName,
	})
}

// executeRun runs the strategy over the symbol's full series and publishes
// the completed result to the run store. Until Put succeeds the run is
// invisible to pollers, so partial results can never leak.
func (s *Server) executeRun(runID, symbol string, runner strategy.Runner, contract sim.Contract) {
	ctx := context.Background()

	result, err := s.runResult(ctx, runID, symbol, runner, contract)
	if err != nil {
		if !s.cfg.Sim.AllowSampleFallback {
			s.log.Error("battle run failed", "run", runID, "symbol", symbol, "error", err)
			return
		}
		s.log.Warn("battle run failed, publishing sample result",
			"run", runID, "symbol", symbol, "error", err)
		result = sampleResult(runID, s.cfg.Sim.StartingCapital)
	}

	if err := s.runs.Put(ctx, result); err != nil {
		s.log.Error("publishing run result", "run", runID, "error", err)
		return
	}
	s.log.Info("battle run completed", "run", runID,
		"finalPnl", result.FinalPnl, "returnPct", result.ReturnPct)
}

func (s *Server) runResult(ctx context.Context, runID, symbol string, runner strategy.Runner, contract sim.Contract) (*domain.RunResult, error) {
	bars, err := s.bars.Bars(symbol)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, runID, bars, contract, s.cfg.Sim.StartingCapital)
}

// sampleResult is the canned result used when a data load fails and sample
// fallback is enabled: a flat two-point run so demo callers always have
// something to render.
func sampleResult(runID string, capital float64) *domain.RunResult {
	now := time.Now().UTC().Truncate(time.Minute)
	return &domain.RunResult{
		RunID:          runID,
		FinalPnl:       0,
		ReturnPct:      0,
		MaxDrawdownPct: 0,
		Trades:         []domain.Fill{},
		EquityCurve: []domain.EquitySample{
			{Timestamp: now.Add(-time.Minute), Equity: capital},
			{Timestamp: now, Equity: capital},
		},
		Status: domain.StatusCompleted,
	}
}

// handleGetRun polls a run. A run that has not published a result yet, or
// that never existed, answers "queued"; callers keep polling.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	result, err := s.runs.Get(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, QueuedResponse{Status: string(domain.StatusQueued)})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.runs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, RunsResponse{Runs: ids})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	bars, err := s.bars.Bars(symbol)
	if err != nil {
		switch {
		case errors.Is(err, marketdata.ErrMissingSource):
			writeError(w, http.StatusNotFound, fmt.Sprintf("no data for %s", symbol))
		case errors.Is(err, marketdata.ErrInsufficientData):
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("not enough data for %s", symbol))
		default:
			writeError(w, http.StatusInternalServerError, "failed to load data")
		}
		return
	}
	writeJSON(w, DataResponse{Symbol: symbol, Bars: bars})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := s.bars.Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, SymbolsResponse{Symbols: symbols})
}

// handleProfile returns the demo profile, enriched with the most recent
// completed runs from the store.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	resp := ProfileResponse{
		Username:   "demo",
		Capital:    s.cfg.Sim.StartingCapital,
		RecentRuns: []RunSummaryJSON{},
	}

	ids, err := s.runs.List(r.Context())
	if err != nil {
		s.log.Warn("listing runs for profile", "error", err)
		writeJSON(w, resp)
		return
	}
	// Newest IDs last in the sorted listing; take up to the last five.
	const maxRecent = 5
	if len(ids) > maxRecent {
		ids = ids[len(ids)-maxRecent:]
	}
	for _, id := range ids {
		result, err := s.runs.Get(r.Context(), id)
		if err != nil {
			continue
		}
		resp.RecentRuns = append(resp.RecentRuns, RunSummaryJSON{
			RunID:     result.RunID,
			FinalPnl:  result.FinalPnl,
			ReturnPct: result.ReturnPct,
			Status:    string(result.Status),
		})
	}
	writeJSON(w, resp)
}

// handleJoinedBattles lists one demo battle per configured asset, carrying
// the replay rule limits.
func (s *Server) handleJoinedBattles(w http.ResponseWriter, r *http.Request) {
	symbols := make([]string, 0, len(s.cfg.Assets))
	for symbol := range s.cfg.Assets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	battles := make([]BattleJSON, 0, len(symbols))
	for i, symbol := range symbols {
		battles = append(battles, BattleJSON{
			ID:             fmt.Sprintf("battle-%d", i+1),
			Title:          fmt.Sprintf("%s minute replay", symbol),
			Symbol:         symbol,
			Status:         "open",
			MaxDrawdownPct: s.cfg.Replay.MaxDrawdownPct,
			MaxTrades:      s.cfg.Replay.MaxTrades,
		})
	}
	writeJSON(w, BattlesResponse{Battles: battles})
}
