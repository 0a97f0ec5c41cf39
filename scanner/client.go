// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/berkwatch/berkwatch/utils/htmlutils"
	"github.com/berkwatch/berkwatch/utils/httputils"
)

// DefaultBaseURL is the production site.
const DefaultBaseURL = "https://www.berkeleyscanner.com/"

// ClientOptions configures the scanner client.
type ClientOptions struct {
	// BaseURL is the site root. Defaults to DefaultBaseURL.
	BaseURL string

	// DataDir is the root path for the raw HTML file store.
	DataDir string

	// UserAgent is the User-Agent header to use in HTTP requests.
	UserAgent string

	// Enables light tracing of HTTP requests and responses.
	EnableHTTPTrace bool

	// MaxArticles caps how many new articles one Update fetches. 0 is unlimited.
	MaxArticles int

	// DryRun discovers but does not fetch or persist anything.
	DryRun bool
}

// ScrapeMetrics tracks statistics during an update.
type ScrapeMetrics struct {
	Discovered int // permalinks found on the homepage
	Skipped    int // already known
	Fetched    int // newly stored
	Failed     int // fetch or extraction failures
}

// Merge combines two ScrapeMetrics objects.
func (m *ScrapeMetrics) Merge(o *ScrapeMetrics) *ScrapeMetrics {
	if o == nil {
		return m
	}

	m.Discovered += o.Discovered
	m.Skipped += o.Skipped
	m.Fetched += o.Fetched
	m.Failed += o.Failed

	return m
}

// Client scrapes berkeleyscanner.com incrementally.
type Client struct {
	options *ClientOptions
	client  *http.Client
	store   *FileStore
	repo    Repository
	Metrics ScrapeMetrics
}

// NewClient creates a new scanner client with the provided options.
func NewClient(options *ClientOptions, repo Repository) *Client {
	if options == nil {
		options = &ClientOptions{}
	}

	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}

	var traceWriter io.Writer
	if options.EnableHTTPTrace {
		traceWriter = os.Stderr
	}

	return &Client{
		options: options,
		client: httputils.NewClient(httputils.ClientOptions{
			UserAgent:   options.UserAgent,
			TraceWriter: traceWriter,
		}),
		store: NewFileStore(options.DataDir),
		repo:  repo,
	}
}

// DiscoverArticleURLs scrapes the homepage for story permalinks.
func (c *Client) DiscoverArticleURLs() ([]string, error) {
	resp, err := c.client.Get(c.options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetching homepage: %w", err)
	}
	defer resp.Body.Close()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, fmt.Errorf("reading homepage: %w", err)
	}

	doc, err := htmlutils.AsNode(r)
	if err != nil {
		return nil, fmt.Errorf("parsing homepage: %w", err)
	}

	return FilterArticleURLs(htmlutils.CollectLinks(doc), c.options.BaseURL), nil
}

// FetchArticle downloads one story page and extracts its fields. The raw
// body is returned alongside so callers can archive it.
func (c *Client) FetchArticle(url string) (*Article, []byte, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", url, err)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", url, err)
	}

	doc, err := htmlutils.AsNode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	article := ExtractArticle(doc, url)
	if err := article.Validate(); err != nil {
		return nil, nil, fmt.Errorf("extracting %s: %w", url, err)
	}

	return article, raw, nil
}

// Update discovers new articles and stores them. Failures on individual
// articles are logged and counted, not fatal: the next run retries them.
func (c *Client) Update() (*ScrapeMetrics, error) {
	urls, err := c.DiscoverArticleURLs()
	if err != nil {
		return &c.Metrics, err
	}

	c.Metrics.Discovered = len(urls)

	known, err := c.repo.KnownURLs()
	if err != nil {
		return &c.Metrics, err
	}

	var pending []string

	for _, u := range urls {
		if known[u] {
			c.Metrics.Skipped++

			continue
		}

		pending = append(pending, u)
	}

	if c.options.MaxArticles > 0 && len(pending) > c.options.MaxArticles {
		pending = pending[:c.options.MaxArticles]
	}

	if c.options.DryRun {
		for _, u := range pending {
			log.Printf("dry-run: would fetch %s", u)
		}

		return &c.Metrics, nil
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(pending),
			progressbar.OptionSetDescription("Fetching articles"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, u := range pending {
		if bar != nil {
			_ = bar.Add(1)
		}

		article, raw, err := c.FetchArticle(u)
		if err != nil {
			log.Printf("⚠️  %v", err)

			c.Metrics.Failed++

			continue
		}

		if err := c.store.Save(u, raw); err != nil {
			return &c.Metrics, err
		}

		if err := c.repo.Save(article); err != nil {
			return &c.Metrics, err
		}

		c.Metrics.Fetched++
	}

	return &c.Metrics, nil
}
