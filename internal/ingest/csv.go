package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/logger"
)

// CSVPriceSource reads per-ticker OHLCV files from a directory. Files are
// named <TICKER>.csv with a date,open,high,low,close,volume header and
// date-ascending rows. Parsed series are cached; they never change within
// a run.
type CSVPriceSource struct {
	dir    string
	logger *logger.Logger

	mu    sync.Mutex
	cache map[string]*contracts.BarSeries
}

var _ contracts.PriceSource = (*CSVPriceSource)(nil)

// NewCSVPriceSource creates a CSV-backed price source rooted at dir.
func NewCSVPriceSource(dir string, log *logger.Logger) *CSVPriceSource {
	return &CSVPriceSource{
		dir:    dir,
		logger: log,
		cache:  make(map[string]*contracts.BarSeries),
	}
}

// Bars loads and caches one ticker's series.
func (s *CSVPriceSource) Bars(ctx context.Context, ticker string) (*contracts.BarSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if series, ok := s.cache[ticker]; ok {
		return series, nil
	}

	path := filepath.Join(s.dir, ticker+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file for %s: %w", ticker, err)
	}
	defer f.Close()

	series, err := parseCSV(ticker, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	s.cache[ticker] = series
	return series, nil
}

// parseCSV reads one OHLCV file. Column order is fixed by the header;
// open/high/low/volume may be empty and default from the close.
func parseCSV(ticker string, r io.Reader) (*contracts.BarSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	series := &contracts.BarSeries{Ticker: ticker}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		line++

		date, err := time.Parse("2006-01-02", record[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, record[col["date"]])
		}
		closePx, err := strconv.ParseFloat(record[col["close"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad close %q", line, record[col["close"]])
		}

		bar := contracts.PriceBar{
			Ticker: ticker,
			Date:   contracts.Day(date),
			Close:  closePx,
			Open:   optionalFloat(record, col, "open"),
			High:   optionalFloat(record, col, "high"),
			Low:    optionalFloat(record, col, "low"),
			Volume: optionalFloat(record, col, "volume"),
		}
		bar.FillFromClose()
		series.Bars = append(series.Bars, bar)
	}

	return series, nil
}

func optionalFloat(record []string, col map[string]int, name string) float64 {
	i, ok := col[name]
	if !ok || i >= len(record) || record[i] == "" {
		return 0
	}
	v, err := strconv.ParseFloat(record[i], 64)
	if err != nil {
		return 0
	}
	return v
}
