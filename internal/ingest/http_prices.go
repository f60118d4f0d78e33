package ingest

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/config"
	"github.com/jkwon/meridian/pkg/httputil"
	"github.com/jkwon/meridian/pkg/logger"
)

// HTTPPriceSource fetches bars from a JSON provider. Request pacing and
// retry live in the shared HTTP client; provider failures surface as
// ExternalServiceError so callers can fail open.
type HTTPPriceSource struct {
	cfg    config.PriceProviderConfig
	client *httputil.Client
	logger *logger.Logger

	mu    sync.Mutex
	cache map[string]*contracts.BarSeries
}

var _ contracts.PriceSource = (*HTTPPriceSource)(nil)

// NewHTTPPriceSource creates an HTTP price source.
func NewHTTPPriceSource(cfg config.PriceProviderConfig, log *logger.Logger) *HTTPPriceSource {
	return &HTTPPriceSource{
		cfg:    cfg,
		client: httputil.New(log, cfg.RequestsPerSec, 30*time.Second),
		logger: log,
		cache:  make(map[string]*contracts.BarSeries),
	}
}

// barRow is the provider's wire format for one day.
type barRow struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type barsResponse struct {
	Ticker string   `json:"ticker"`
	Bars   []barRow `json:"bars"`
}

// Bars fetches and caches one ticker's full history.
func (s *HTTPPriceSource) Bars(ctx context.Context, ticker string) (*contracts.BarSeries, error) {
	s.mu.Lock()
	if series, ok := s.cache[ticker]; ok {
		s.mu.Unlock()
		return series, nil
	}
	s.mu.Unlock()

	u := fmt.Sprintf("%s/v1/bars?ticker=%s&apikey=%s",
		s.cfg.BaseURL, url.QueryEscape(ticker), url.QueryEscape(s.cfg.APIKey))

	var resp barsResponse
	if err := s.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, &contracts.ExternalServiceError{Service: "prices", Err: err}
	}

	series := &contracts.BarSeries{Ticker: ticker}
	for _, row := range resp.Bars {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return nil, &contracts.ExternalServiceError{
				Service: "prices",
				Err:     fmt.Errorf("bad date %q for %s", row.Date, ticker),
			}
		}
		bar := contracts.PriceBar{
			Ticker: ticker,
			Date:   contracts.Day(date),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		}
		bar.FillFromClose()
		series.Bars = append(series.Bars, bar)
	}

	s.mu.Lock()
	s.cache[ticker] = series
	s.mu.Unlock()
	return series, nil
}
