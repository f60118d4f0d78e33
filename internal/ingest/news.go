package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/config"
	"github.com/jkwon/meridian/pkg/httputil"
	"github.com/jkwon/meridian/pkg/logger"
)

// FileNewsSource reads per-ticker article archives from JSON files named
// <TICKER>.json under a directory.
type FileNewsSource struct {
	dir    string
	logger *logger.Logger
}

var _ contracts.NewsSource = (*FileNewsSource)(nil)

// NewFileNewsSource creates a file-backed news source.
func NewFileNewsSource(dir string, log *logger.Logger) *FileNewsSource {
	return &FileNewsSource{dir: dir, logger: log}
}

// Articles returns the ticker's articles published within [from, to]. A
// missing archive file means no coverage, not an error.
func (s *FileNewsSource) Articles(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, ticker+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read news archive for %s: %w", ticker, err)
	}

	var all []contracts.Article
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse news archive %s: %w", path, err)
	}

	return filterRange(all, from, to), nil
}

// HTTPNewsSource scrapes a provider's per-ticker headline listing. The
// page carries article blocks with a title, a body snippet and an RFC3339
// timestamp attribute.
type HTTPNewsSource struct {
	cfg    config.NewsProviderConfig
	client *httputil.Client
	logger *logger.Logger
}

var _ contracts.NewsSource = (*HTTPNewsSource)(nil)

// NewHTTPNewsSource creates an HTTP news source.
func NewHTTPNewsSource(cfg config.NewsProviderConfig, log *logger.Logger) *HTTPNewsSource {
	return &HTTPNewsSource{
		cfg:    cfg,
		client: httputil.New(log, cfg.RequestsPerSec, 30*time.Second),
		logger: log,
	}
}

// Articles fetches and parses the ticker's headline page.
func (s *HTTPNewsSource) Articles(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Article, error) {
	u := fmt.Sprintf("%s/news/%s", s.cfg.BaseURL, url.PathEscape(ticker))
	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, &contracts.ExternalServiceError{Service: "news", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, &contracts.ExternalServiceError{
			Service: "news",
			Err:     fmt.Errorf("unexpected status %d for %s", resp.StatusCode, ticker),
		}
	}

	articles, err := ParseNewsHTML(resp.Body, ticker)
	if err != nil {
		return nil, &contracts.ExternalServiceError{Service: "news", Err: err}
	}
	return filterRange(articles, from, to), nil
}

// ParseNewsHTML extracts articles from a provider headline page. Blocks
// missing a parseable timestamp are dropped.
func ParseNewsHTML(r io.Reader, ticker string) ([]contracts.Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news HTML: %w", err)
	}

	var articles []contracts.Article
	doc.Find("article.news-item").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".headline").First().Text())
		if title == "" {
			return
		}
		ts, ok := sel.Attr("data-published")
		if !ok {
			return
		}
		published, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return
		}

		articles = append(articles, contracts.Article{
			Ticker:      ticker,
			Title:       title,
			Body:        strings.TrimSpace(sel.Find(".summary").First().Text()),
			PublishedAt: published.UTC(),
			Source:      strings.TrimSpace(sel.Find(".source").First().Text()),
		})
	})

	return articles, nil
}

// filterRange keeps articles published within [from, to], inclusive.
func filterRange(all []contracts.Article, from, to time.Time) []contracts.Article {
	var out []contracts.Article
	for _, a := range all {
		if a.PublishedAt.Before(from) || a.PublishedAt.After(to.Add(24*time.Hour-time.Nanosecond)) {
			continue
		}
		out = append(out, a)
	}
	return out
}
