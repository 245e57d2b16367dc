package airchat

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sjvalley/go-airchat/pkg/config"
	"github.com/sjvalley/go-airchat/pkg/crawler"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl valleyair.org into markdown files",
	Long: `Crawl every page listed in the site's sitemap, convert the page
body to markdown, and write one file per page into the output directory.
Each file starts with the source URL so the indexer can attribute chunks.`,
	RunE: runCrawl,
}

var (
	crawlSitemapURL  string
	crawlOutputDir   string
	crawlParallelism int
)

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&crawlSitemapURL, "sitemap", "", "Sitemap URL to crawl")
	crawlCmd.Flags().StringVar(&crawlOutputDir, "output", "", "Directory for markdown files")
	crawlCmd.Flags().IntVar(&crawlParallelism, "parallelism", 0, "Concurrent page fetches")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if crawlSitemapURL != "" {
		cfg.Crawler.SitemapURL = crawlSitemapURL
	}
	if crawlOutputDir != "" {
		cfg.Crawler.OutputDir = crawlOutputDir
	}
	if crawlParallelism > 0 {
		cfg.Crawler.Parallelism = crawlParallelism
	}

	log := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := crawler.New(crawler.Config{
		SitemapURL:  cfg.Crawler.SitemapURL,
		OutputDir:   cfg.Crawler.OutputDir,
		Parallelism: cfg.Crawler.Parallelism,
		MinWords:    cfg.Crawler.MinWords,
		UserAgent:   cfg.Crawler.UserAgent,
	}, log)

	count, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Crawled %d pages into %s\n", count, cfg.Crawler.OutputDir)
	return nil
}
