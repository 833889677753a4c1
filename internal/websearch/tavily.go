// Package websearch answers current-events questions from live web
// search results.
package websearch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
)

// Options tune each search.
type Options struct {
	MaxResults        int
	IncludeDomains    []string
	ExcludeDomains    []string
	IncludeRawContent bool
	SearchDepth       string // basic or advanced
	TimeRange         string // day, week, month, year
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxResults:        1,
		IncludeRawContent: true,
		SearchDepth:       "advanced",
		TimeRange:         "year",
	}
}

// Result is one search hit.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content"`
	Score      float64 `json:"score"`
}

// Backend performs a web search.
type Backend interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

type tavilyRequest struct {
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeImages     bool     `json:"include_images"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	TimeRange         string   `json:"time_range,omitempty"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

type tavilyError struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	client *resty.Client
}

// NewTavilyClient creates a client. Returns nil when apiKey is empty.
func NewTavilyClient(apiKey, baseURL string, timeout time.Duration) *TavilyClient {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(apiKey)

	return &TavilyClient{client: client}
}

// Search runs one query. There is no retry.
func (c *TavilyClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	var (
		result  tavilyResponse
		errBody tavilyError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(tavilyRequest{
			Query:             query,
			MaxResults:        opts.MaxResults,
			IncludeDomains:    opts.IncludeDomains,
			ExcludeDomains:    opts.ExcludeDomains,
			IncludeRawContent: opts.IncludeRawContent,
			SearchDepth:       opts.SearchDepth,
			TimeRange:         opts.TimeRange,
		}).
		SetResult(&result).
		SetError(&errBody).
		Post("/search")
	if err != nil {
		return nil, apperrors.NewProviderError("tavily", "search", 0, err)
	}
	if resp.IsError() {
		msg := errBody.Detail.Error
		if msg == "" {
			msg = resp.Status()
		}
		return nil, apperrors.NewProviderError("tavily", "search", resp.StatusCode(), errors.New(msg))
	}
	return result.Results, nil
}
