package apod

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxPageBytes limits the size of fetched page responses.
const maxPageBytes = 10 * 1024 * 1024 // 10 MB

// latestPage is the upstream page that always serves the newest APOD.
const latestPage = "astropix.html"

// PageFetcher retrieves raw page HTML for a date. A missing page is
// reported as ErrNoPage, a distinguishable outcome rather than an
// opaque failure, so the orchestrator can apply the day-shift fallback.
type PageFetcher interface {
	// Fetch returns the HTML of the page for the given date.
	Fetch(ctx context.Context, date time.Time) ([]byte, error)
	// FetchLatest returns the HTML of the newest published page.
	FetchLatest(ctx context.Context) ([]byte, error)
}

// FetcherConfig configures the HTTP page fetcher.
type FetcherConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// HTTPFetcher fetches APOD pages over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewHTTPFetcher creates a fetcher for the configured upstream site.
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
	}
}

// PageURL returns the upstream URL for a date, e.g. .../ap170322.html.
func (f *HTTPFetcher) PageURL(date time.Time) string {
	return fmt.Sprintf("%sap%s.html", f.baseURL, date.Format("060102"))
}

// Fetch retrieves the page for the given date. A 404 maps to ErrNoPage.
func (f *HTTPFetcher) Fetch(ctx context.Context, date time.Time) ([]byte, error) {
	body, err := f.get(ctx, f.PageURL(date))
	if err != nil {
		return nil, fmt.Errorf("fetch page for %s: %w", date.Format(DateFormat), err)
	}
	return body, nil
}

// FetchLatest retrieves the newest published page.
func (f *HTTPFetcher) FetchLatest(ctx context.Context) ([]byte, error) {
	body, err := f.get(ctx, f.baseURL+latestPage)
	if err != nil {
		return nil, fmt.Errorf("fetch latest page: %w", err)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoPage
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}
