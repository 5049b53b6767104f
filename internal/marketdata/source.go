package marketdata

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"paperduel/internal/domain"
)

// Source resolves bar series for configured symbols, reading the Parquet
// cache when it is at least as new as the CSV, and otherwise parsing the CSV
// and refreshing the cache.
type Source struct {
	csvPaths map[string]string // symbol → CSV file
	cache    *ParquetCache
	log      *slog.Logger
}

// NewSource creates a Source over the given symbol→CSV mapping. cache may be
// nil to disable caching.
func NewSource(csvPaths map[string]string, cache *ParquetCache, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		csvPaths: csvPaths,
		cache:    cache,
		log:      logger,
	}
}

// Bars returns the ordered bar series for a symbol. An unknown symbol or a
// missing file (with no cache to fall back on) is ErrMissingSource.
func (s *Source) Bars(symbol string) ([]domain.Bar, error) {
	csvPath, ok := s.csvPaths[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: unknown symbol %q", ErrMissingSource, symbol)
	}

	csvInfo, csvErr := os.Stat(csvPath)

	if s.cache != nil {
		if mod := s.cache.ModTime(symbol); !mod.IsZero() {
			if csvErr != nil || !mod.Before(csvInfo.ModTime()) {
				bars, err := s.cache.ReadBars(symbol)
				if err == nil && len(bars) >= 2 {
					return bars, nil
				}
				s.log.Warn("bar cache unreadable, falling back to CSV", "symbol", symbol, "error", err)
			}
		}
	}

	bars, err := LoadCSV(symbol, csvPath, s.log)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.WriteBars(symbol, bars); err != nil {
			// Cache refresh failures are not fatal to the run.
			s.log.Warn("refreshing bar cache failed", "symbol", symbol, "error", err)
		}
	}
	return bars, nil
}

// Symbols returns the configured symbols, sorted.
func (s *Source) Symbols() []string {
	out := make([]string, 0, len(s.csvPaths))
	for sym := range s.csvPaths {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
