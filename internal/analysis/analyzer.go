package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/config"
	"github.com/jkwon/meridian/pkg/httputil"
	"github.com/jkwon/meridian/pkg/logger"
)

// Analyzer calls the external LLM news classifier. Calls run through a
// circuit breaker so a flapping endpoint stops being hammered, and results
// are cached per ticker+date. Every failure mode is fail-open for callers.
type Analyzer struct {
	cfg     config.DeepAnalysisConfig
	client  *httputil.Client
	store   Store
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

// request/response wire format of the classification endpoint.
type analyzeRequest struct {
	Model     string   `json:"model"`
	Ticker    string   `json:"ticker"`
	Date      string   `json:"date"`
	Headlines []string `json:"headlines"`
}

type analyzeResponse struct {
	SentimentAdjust float64 `json:"sentiment_adjust"`
	Entities        []struct {
		Name         string `json:"name"`
		Relationship string `json:"relationship"`
	} `json:"entities"`
}

// New creates a deep analyzer. store must not be nil.
func New(cfg config.DeepAnalysisConfig, client *httputil.Client, store Store, log *logger.Logger) *Analyzer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "deep-analysis",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     120 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Analyzer{
		cfg:     cfg,
		client:  client,
		store:   store,
		breaker: breaker,
		logger:  log,
	}
}

// Analyze classifies a ticker/date's headlines. Disabled config, breaker
// open, HTTP failure and unparseable payloads all surface as
// ExternalServiceError; callers treat any error as "contributes nothing".
func (a *Analyzer) Analyze(ctx context.Context, ticker string, date time.Time, headlines []string) (*contracts.DeepAnalysisResult, error) {
	if !a.cfg.Enabled {
		return nil, &contracts.ExternalServiceError{Service: "deep-analysis", Err: fmt.Errorf("disabled")}
	}
	if len(headlines) == 0 {
		return nil, nil
	}

	if cached, ok := a.store.Get(ctx, ticker, date); ok {
		return cached, nil
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
		return a.call(callCtx, ticker, date, headlines)
	})
	if err != nil {
		return nil, &contracts.ExternalServiceError{Service: "deep-analysis", Err: err}
	}

	out := result.(*contracts.DeepAnalysisResult)
	a.store.Put(ctx, out)
	return out, nil
}

// call performs the actual HTTP exchange.
func (a *Analyzer) call(ctx context.Context, ticker string, date time.Time, headlines []string) (*contracts.DeepAnalysisResult, error) {
	req := analyzeRequest{
		Model:     a.cfg.Model,
		Ticker:    ticker,
		Date:      date.Format("2006-01-02"),
		Headlines: headlines,
	}

	resp, err := a.client.PostJSON(ctx, a.cfg.Endpoint+"/v1/classify", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classify returned %d: %s", resp.StatusCode, string(body))
	}

	var payload analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("unparseable classify response: %w", err)
	}

	out := &contracts.DeepAnalysisResult{
		Ticker:          ticker,
		Date:            date,
		SentimentAdjust: clampSigned(payload.SentimentAdjust),
	}
	for _, e := range payload.Entities {
		rel := contracts.Relationship(e.Relationship)
		switch rel {
		case contracts.RelSupplier, contracts.RelCustomer, contracts.RelCompetitor:
			out.DiscoveredEntities = append(out.DiscoveredEntities, contracts.DiscoveredEntity{
				Name:         e.Name,
				Relationship: rel,
			})
		}
	}

	return out, nil
}

func clampSigned(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
