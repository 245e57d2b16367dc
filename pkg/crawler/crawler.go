// Package crawler downloads a site's pages via its sitemap and writes
// each page as a markdown file, one file per page, with the page URL on
// the first line.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// strippedSelectors are removed from pages before markdown conversion.
const strippedSelectors = "nav, footer, header, script, style, noscript, iframe, form"

// Config holds crawler settings.
type Config struct {
	SitemapURL  string
	OutputDir   string
	Parallelism int
	// MinWords drops pages and lines with less content than this.
	MinWords int
	// UserAgent is sent with every request.
	UserAgent string
}

// Crawler fetches pages listed in a sitemap and stores them as pruned
// markdown files.
type Crawler struct {
	config    Config
	converter *md.Converter
	logger    *slog.Logger

	mu        sync.Mutex
	processed int
}

// New creates a crawler.
func New(config Config, logger *slog.Logger) *Crawler {
	if config.OutputDir == "" {
		config.OutputDir = "output"
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 4
	}
	if config.MinWords <= 0 {
		config.MinWords = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Crawler{
		config:    config,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// Run crawls every URL in the sitemap and returns how many pages
// produced content files.
func (c *Crawler) Run(ctx context.Context) (int, error) {
	urls, err := FetchSitemap(ctx, c.config.SitemapURL)
	if err != nil {
		return 0, err
	}
	if len(urls) == 0 {
		return 0, fmt.Errorf("no URLs found in sitemap %s", c.config.SitemapURL)
	}
	c.logger.Info("sitemap fetched", "urls", len(urls))

	if err := os.MkdirAll(c.config.OutputDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := []colly.CollectorOption{colly.Async(true)}
	if c.config.UserAgent != "" {
		opts = append(opts, colly.UserAgent(c.config.UserAgent))
	}
	collector := colly.NewCollector(opts...)
	collector.SetRequestTimeout(2 * time.Minute)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.config.Parallelism,
	}); err != nil {
		return 0, fmt.Errorf("failed to configure rate limit: %w", err)
	}

	pageIndex := make(map[string]int, len(urls))
	for i, u := range urls {
		pageIndex[u] = i
	}

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		pageURL := e.Request.URL.String()
		if err := c.savePage(e.DOM, pageURL, pageIndex[pageURL]); err != nil {
			c.logger.Warn("failed to save page", "url", pageURL, "error", err)
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		c.logger.Warn("page fetch failed", "url", r.Request.URL.String(), "error", err)
	})

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		if err := collector.Visit(u); err != nil {
			c.logger.Warn("visit failed", "url", u, "error", err)
		}
	}
	collector.Wait()

	c.mu.Lock()
	processed := c.processed
	c.mu.Unlock()
	c.logger.Info("crawl finished", "processed", processed, "total", len(urls))
	return processed, ctx.Err()
}

func (c *Crawler) savePage(doc *goquery.Selection, pageURL string, index int) error {
	title := strings.TrimSpace(doc.Find("head > title").First().Text())

	body := doc.Find("body")
	if body.Length() == 0 {
		return fmt.Errorf("page has no body")
	}
	body.Find(strippedSelectors).Remove()

	markdown := PruneMarkdown(c.converter.Convert(body), c.config.MinWords)
	if WordCount(markdown) < c.config.MinWords {
		c.logger.Debug("skipping page with too little content", "url", pageURL)
		return nil
	}

	// File writes and uniqueness checks must not race across workers.
	c.mu.Lock()
	defer c.mu.Unlock()

	path := UniquePath(c.config.OutputDir, FilenameBase(title, pageURL, index))
	content := pageURL + "\n\n" + markdown + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	c.processed++
	c.logger.Info("page saved", "url", pageURL, "file", path)
	return nil
}
