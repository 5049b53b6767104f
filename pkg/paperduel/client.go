// Package paperduel provides a Go SDK for the paperduel-server API: start a
// battle run, then poll until the completed result is published.
package paperduel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Run is a completed battle run.
type Run struct {
	RunID          string         `json:"runId"`
	FinalPnl       float64        `json:"finalPnl"`
	ReturnPct      float64        `json:"returnPct"`
	MaxDrawdownPct float64        `json:"maxDrawdownPct"`
	Trades         []Fill         `json:"trades"`
	EquityCurve    []EquitySample `json:"equityCurve"`
	Status         string         `json:"status"`
}

// Fill is one executed order within a run.
type Fill struct {
	Timestamp  time.Time `json:"t"`
	Side       string    `json:"side"`
	Qty        int       `json:"qty"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
}

// EquitySample is one point of a run's equity curve.
type EquitySample struct {
	Timestamp time.Time `json:"t"`
	Equity    float64   `json:"equity"`
}

// Bar is one OHLC minute bar.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// StartedRun acknowledges a started battle run.
type StartedRun struct {
	RunID    string `json:"runId"`
	BattleID string `json:"battleId"`
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
}

// StatusQueued is the status reported while a run has not completed.
const StatusQueued = "queued"

// Client provides access to the paperduel-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new paperduel API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// StartRun starts a battle run for the given asset and strategy. Empty
// asset or strategy fall back to the server defaults.
func (c *Client) StartRun(ctx context.Context, battleID, asset, strategy string) (*StartedRun, error) {
	q := url.Values{}
	if asset != "" {
		q.Set("asset", asset)
	}
	if strategy != "" {
		q.Set("strategy", strategy)
	}
	path := fmt.Sprintf("/battle/%s/run", url.PathEscape(battleID))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("POST %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}

	var started StartedRun
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return nil, err
	}
	return &started, nil
}

// GetRun polls a run once. While the run has not published a result the
// returned Run carries StatusQueued and no other fields.
func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := c.getJSON(ctx, "/run/"+url.PathEscape(runID), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// WaitForRun polls the run at the given interval until it leaves the queued
// state or ctx is done.
func (c *Client) WaitForRun(ctx context.Context, runID string, interval time.Duration) (*Run, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := c.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run.Status != StatusQueued {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetBars retrieves the bar series for a symbol.
func (c *Client) GetBars(ctx context.Context, symbol string) ([]Bar, error) {
	var resp struct {
		Symbol string `json:"symbol"`
		Bars   []Bar  `json:"bars"`
	}
	if err := c.getJSON(ctx, "/data/"+url.PathEscape(symbol), &resp); err != nil {
		return nil, err
	}
	return resp.Bars, nil
}

// ListRuns retrieves the IDs of all stored runs.
func (c *Client) ListRuns(ctx context.Context) ([]string, error) {
	var resp struct {
		Runs []string `json:"runs"`
	}
	if err := c.getJSON(ctx, "/runs", &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}
