package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paperduel/internal/config"
	"paperduel/internal/domain"
	"paperduel/internal/marketdata"
	"paperduel/internal/store"
	"paperduel/internal/strategy"
)

// fakeSource serves fixed bar series from memory.
type fakeSource struct {
	series map[string][]domain.Bar
	err    error
}

func (f *fakeSource) Bars(symbol string) ([]domain.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	bars, ok := f.series[symbol]
	if !ok {
		return nil, marketdata.ErrMissingSource
	}
	return bars, nil
}

func (f *fakeSource) Symbols() []string {
	var out []string
	for s := range f.series {
		out = append(out, s)
	}
	return out
}

func esBars(n int) []domain.Bar {
	base := time.Date(2023, 1, 3, 14, 31, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	price := 3860.0
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol:    "ES",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      price, High: price + 1, Low: price - 1, Close: price + 0.5,
		}
		price += 0.25
	}
	return bars
}

func newTestServer(t *testing.T, src BarSource, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	s := NewServer(src, store.NewMemoryStore(), strategy.NewDefaultRegistry(), cfg, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp
}

// pollRun polls the run endpoint until the result leaves the queued state
// or the deadline passes.
func pollRun(t *testing.T, baseURL, runID string) *domain.RunResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/run/" + runID)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		var raw map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			resp.Body.Close()
			t.Fatalf("decoding poll response: %v", err)
		}
		resp.Body.Close()

		if raw["status"] != string(domain.StatusQueued) {
			var result domain.RunResult
			resp2, err := http.Get(baseURL + "/run/" + runID)
			if err != nil {
				t.Fatalf("re-fetch: %v", err)
			}
			err = json.NewDecoder(resp2.Body).Decode(&result)
			resp2.Body.Close()
			if err != nil {
				t.Fatalf("decoding result: %v", err)
			}
			return &result
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run never completed")
	return nil
}

func TestStartRunAndPoll(t *testing.T) {
	src := &fakeSource{series: map[string][]domain.Bar{"ES": esBars(50)}}
	_, ts := newTestServer(t, src, nil)

	resp, err := http.Post(ts.URL+"/battle/battle-1/run?asset=ES&strategy=buy-hold", "", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var started StartRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatalf("decoding start response: %v", err)
	}
	resp.Body.Close()

	if started.RunID == "" {
		t.Fatal("empty runId")
	}
	if started.BattleID != "battle-1" || started.Symbol != "ES" || started.Strategy != "buy-hold" {
		t.Errorf("start response = %+v", started)
	}

	result := pollRun(t, ts.URL, started.RunID)
	if result.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", result.Status)
	}
	if result.RunID != started.RunID {
		t.Errorf("runId = %q, want %q", result.RunID, started.RunID)
	}
	if len(result.Trades) != 2 {
		t.Errorf("buy-hold produced %d trades, want 2", len(result.Trades))
	}
	if len(result.EquityCurve) != 50 {
		t.Errorf("equity curve has %d samples, want 50", len(result.EquityCurve))
	}
}

func TestUnknownRunPollsQueued(t *testing.T) {
	_, ts := newTestServer(t, &fakeSource{}, nil)

	var q QueuedResponse
	resp := getJSON(t, ts.URL+"/run/never-started", &q)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want 200", resp.StatusCode)
	}
	if q.Status != "queued" {
		t.Errorf("status = %q, want queued", q.Status)
	}
}

func TestStartRunValidation(t *testing.T) {
	src := &fakeSource{series: map[string][]domain.Bar{"ES": esBars(10)}}
	_, ts := newTestServer(t, src, nil)

	resp, err := http.Post(ts.URL+"/battle/b/run?asset=GC", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown asset: status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/battle/b/run?asset=ES&strategy=nope", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown strategy: status = %d, want 400", resp.StatusCode)
	}
}

func TestSampleFallbackPublishesResult(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.AllowSampleFallback = true
	src := &fakeSource{err: marketdata.ErrMissingSource}
	_, ts := newTestServer(t, src, cfg)

	resp, err := http.Post(ts.URL+"/battle/b/run?asset=ES", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	var started StartRunResponse
	json.NewDecoder(resp.Body).Decode(&started)
	resp.Body.Close()

	result := pollRun(t, ts.URL, started.RunID)
	if result.Status != domain.StatusCompleted {
		t.Errorf("fallback status = %q, want completed", result.Status)
	}
	if result.FinalPnl != 0 || len(result.Trades) != 0 {
		t.Errorf("fallback result should be flat, got %+v", result)
	}
}

func TestNoFallbackStaysQueued(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.AllowSampleFallback = false
	src := &fakeSource{err: marketdata.ErrMissingSource}
	_, ts := newTestServer(t, src, cfg)

	resp, err := http.Post(ts.URL+"/battle/b/run?asset=ES", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	var started StartRunResponse
	json.NewDecoder(resp.Body).Decode(&started)
	resp.Body.Close()

	// Give the background run time to fail, then confirm the poll still
	// reports queued.
	time.Sleep(100 * time.Millisecond)
	var q QueuedResponse
	getJSON(t, ts.URL+"/run/"+started.RunID, &q)
	if q.Status != "queued" {
		t.Errorf("failed run without fallback should poll queued, got %q", q.Status)
	}
}

func TestDataEndpoint(t *testing.T) {
	src := &fakeSource{series: map[string][]domain.Bar{"ES": esBars(3)}}
	_, ts := newTestServer(t, src, nil)

	var data DataResponse
	resp := getJSON(t, ts.URL+"/data/es", &data)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if data.Symbol != "ES" || len(data.Bars) != 3 {
		t.Errorf("data = %s with %d bars, want ES with 3", data.Symbol, len(data.Bars))
	}

	resp = getJSON(t, ts.URL+"/data/GC", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing symbol: status = %d, want 404", resp.StatusCode)
	}
}

func TestProfileListsRecentRuns(t *testing.T) {
	src := &fakeSource{series: map[string][]domain.Bar{"ES": esBars(20)}}
	_, ts := newTestServer(t, src, nil)

	resp, err := http.Post(ts.URL+"/battle/b/run?asset=ES", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	var started StartRunResponse
	json.NewDecoder(resp.Body).Decode(&started)
	resp.Body.Close()
	pollRun(t, ts.URL, started.RunID)

	var profile ProfileResponse
	getJSON(t, ts.URL+"/user/profile", &profile)
	if profile.Username != "demo" {
		t.Errorf("username = %q, want demo", profile.Username)
	}
	if len(profile.RecentRuns) != 1 {
		t.Fatalf("recentRuns = %d, want 1", len(profile.RecentRuns))
	}
	if profile.RecentRuns[0].RunID != started.RunID {
		t.Errorf("recent run = %q, want %q", profile.RecentRuns[0].RunID, started.RunID)
	}
}

func TestJoinedBattles(t *testing.T) {
	_, ts := newTestServer(t, &fakeSource{}, nil)

	var battles BattlesResponse
	getJSON(t, ts.URL+"/user/joined-battles", &battles)
	if len(battles.Battles) != 2 {
		t.Fatalf("battles = %d, want 2 (ES and NQ)", len(battles.Battles))
	}
	if battles.Battles[0].Symbol != "ES" || battles.Battles[1].Symbol != "NQ" {
		t.Errorf("battle symbols = %q, %q, want ES, NQ",
			battles.Battles[0].Symbol, battles.Battles[1].Symbol)
	}
	if battles.Battles[0].MaxDrawdownPct != 5 || battles.Battles[0].MaxTrades != 100 {
		t.Errorf("battle rules = %+v, want 5%% drawdown / 100 trades", battles.Battles[0])
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, &fakeSource{}, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/run/abc", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
}
