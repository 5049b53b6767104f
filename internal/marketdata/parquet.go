package marketdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"paperduel/internal/domain"
)

// BarRecord is the Parquet schema for cached bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
}

// ParquetCache stores parsed bar series as Parquet files so repeated runs
// skip CSV parsing. One file per symbol:
//
//	<DataDir>/bars/<SYMBOL>.parquet
type ParquetCache struct {
	DataDir string
}

// NewParquetCache creates a cache rooted at the given data directory.
func NewParquetCache(dataDir string) *ParquetCache {
	return &ParquetCache{DataDir: dataDir}
}

// Path returns the cache file path for a symbol.
func (c *ParquetCache) Path(symbol string) string {
	return filepath.Join(c.DataDir, "bars", strings.ToUpper(symbol)+".parquet")
}

// WriteBars replaces the cached series for a symbol.
func (c *ParquetCache) WriteBars(symbol string, bars []domain.Bar) error {
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, BarRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
		})
	}

	path := c.Path(symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing bar cache for %s: %w", symbol, err)
	}
	return nil
}

// ReadBars returns the cached series for a symbol in file order.
func (c *ParquetCache) ReadBars(symbol string) ([]domain.Bar, error) {
	records, err := parquet.ReadFile[BarRecord](c.Path(symbol))
	if err != nil {
		return nil, err
	}

	bars := make([]domain.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, domain.Bar{
			Symbol:    r.Symbol,
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
		})
	}
	return bars, nil
}

// ModTime returns the cache file's modification time, or the zero time if
// the file does not exist.
func (c *ParquetCache) ModTime(symbol string) time.Time {
	info, err := os.Stat(c.Path(symbol))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
