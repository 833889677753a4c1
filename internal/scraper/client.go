// Package scraper fetches web pages politely: one shared pacing limiter,
// bounded retries with backoff, rotating user agents and charset-aware
// HTML parsing.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/html/charset"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/ratelimit"
)

// ErrNotHTML is returned when a response is not an HTML document.
var ErrNotHTML = errors.New("response is not HTML")

// ClientConfig tunes a Client.
type ClientConfig struct {
	Timeout      time.Duration // Per request
	Delay        time.Duration // Minimum spacing between requests
	MaxRetries   int
	InitialDelay time.Duration // First retry backoff; defaults to 1s
}

// Client is an HTTP client for crawling.
type Client struct {
	httpClient   *http.Client
	limiter      *ratelimit.Limiter
	maxRetries   int
	initialDelay time.Duration
}

// NewClient creates a client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:      ratelimit.NewInterval(cfg.Delay),
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
	}
}

// Page is a fetched HTML document.
type Page struct {
	URL string // Final URL after redirects
	Doc *goquery.Document
}

// Get performs a paced GET with retries. The caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	err := RetryWithBackoff(ctx, c.maxRetries, c.initialDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", uarand.GetRandom())
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "gzip")

		r, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return Permanent(ctx.Err())
			}
			return apperrors.NewScraperError(url, 0, err)
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}

		_ = r.Body.Close()
		statusErr := apperrors.NewScraperError(url, r.StatusCode, errors.New(http.StatusText(r.StatusCode)))
		switch r.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return statusErr
		default:
			return Permanent(statusErr)
		}
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetDocument fetches url and parses it as HTML. Non-HTML responses
// return ErrNotHTML.
func (c *Client) GetDocument(ctx context.Context, url string) (*Page, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("%s (%s): %w", url, contentType, ErrNotHTML)
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decompress gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	utf8Body, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return &Page{URL: resp.Request.URL.String(), Doc: doc}, nil
}
