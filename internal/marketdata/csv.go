// Package marketdata loads ordered OHLC bar series from CSV sources and
// maintains a Parquet cache of parsed series.
package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"paperduel/internal/domain"
)

// Sentinel errors for bar loading. Both are fatal to a run.
var (
	// ErrMissingSource indicates the bar data source does not exist.
	ErrMissingSource = errors.New("bar source unavailable")

	// ErrInsufficientData indicates fewer than 2 usable rows remained after
	// parsing.
	ErrInsufficientData = errors.New("fewer than 2 usable bars")
)

// timeLayouts are tried in order when parsing bar timestamps.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// LoadCSV reads and parses the bar series for symbol from the CSV file at
// path. A missing file yields ErrMissingSource.
func LoadCSV(symbol, path string, logger *slog.Logger) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, err
	}
	defer f.Close()

	return ParseCSV(symbol, f, logger)
}

// ParseCSV parses bars from CSV text. The header row must name the columns
// timestamp, open, high, low, close; column order is free and extra columns
// are ignored. Rows whose open or close fail to parse as finite numbers are
// dropped (best-effort ingestion; the dropped count is logged). Fewer than 2
// surviving rows is ErrInsufficientData.
func ParseCSV(symbol string, r io.Reader, logger *slog.Logger) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // wide files with extra columns are fine

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrInsufficientData
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "open", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("header missing column %q", required)
		}
	}

	var bars []domain.Bar
	dropped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			continue
		}

		bar, ok := parseRow(symbol, row, col)
		if !ok {
			dropped++
			continue
		}
		bars = append(bars, bar)
	}

	if dropped > 0 && logger != nil {
		logger.Warn("dropped unparsable rows", "symbol", symbol, "dropped", dropped, "kept", len(bars))
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, len(bars))
	}
	return bars, nil
}

// parseRow converts one CSV record to a Bar. Open and close must parse as
// finite floats; high and low fall back to the open/close envelope when they
// don't parse.
func parseRow(symbol string, row []string, col map[string]int) (domain.Bar, bool) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts, ok := parseTimestamp(field("timestamp"))
	if !ok {
		return domain.Bar{}, false
	}
	open, err := strconv.ParseFloat(field("open"), 64)
	if err != nil || math.IsNaN(open) || math.IsInf(open, 0) {
		return domain.Bar{}, false
	}
	closePx, err := strconv.ParseFloat(field("close"), 64)
	if err != nil || math.IsNaN(closePx) || math.IsInf(closePx, 0) {
		return domain.Bar{}, false
	}

	high, err := strconv.ParseFloat(field("high"), 64)
	if err != nil || math.IsNaN(high) || math.IsInf(high, 0) {
		high = math.Max(open, closePx)
	}
	low, err := strconv.ParseFloat(field("low"), 64)
	if err != nil || math.IsNaN(low) || math.IsInf(low, 0) {
		low = math.Min(open, closePx)
	}

	return domain.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
	}, true
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
