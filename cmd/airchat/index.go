package airchat

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sjvalley/go-airchat/pkg/cache"
	"github.com/sjvalley/go-airchat/pkg/config"
	"github.com/sjvalley/go-airchat/pkg/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index crawled markdown files into Elasticsearch",
	Long: `Read the crawled markdown files, split them into sentence-aligned
chunks, embed each chunk, and index everything into Elasticsearch for
hybrid retrieval.`,
	RunE: runIndex,
}

var (
	indexDir         string
	indexDeleteFirst bool
)

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringVar(&indexDir, "dir", "", "Directory of markdown files (defaults to the crawler output directory)")
	indexCmd.Flags().BoolVar(&indexDeleteFirst, "delete-index", false, "Delete the existing index before indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dir := indexDir
	if dir == "" {
		dir = cfg.Crawler.OutputDir
	}

	log := newLogger(cfg)

	var ec cache.Cache
	if cfg.Cache.Path != "" {
		c, err := cache.NewBadgerCache(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()
		ec = c
	}

	emb, err := newEmbedderClient(cfg, ec)
	if err != nil {
		return err
	}
	defer emb.Close()

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer store.Close()

	chunker, err := indexer.NewChunker(0, 0)
	if err != nil {
		return fmt.Errorf("failed to create chunker: %w", err)
	}

	ix := indexer.New(store, emb, chunker, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ix.CheckConnections(ctx); err != nil {
		return err
	}

	if indexDeleteFirst {
		log.Info("deleting existing index", "index", cfg.Elasticsearch.Index)
		if err := store.DeleteIndex(ctx); err != nil {
			return fmt.Errorf("failed to delete index: %w", err)
		}
	}

	count, err := ix.Run(ctx, dir)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Indexed %d chunks from %s\n", count, dir)
	return nil
}
