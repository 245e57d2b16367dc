package airchat

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sjvalley/go-airchat/pkg/config"
	"github.com/sjvalley/go-airchat/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP server",
	Long: `Start the HTTP server that answers Valley Air questions.

The server provides endpoints for:
- Chat completions with source citations (POST /chat)
- Streaming chat over server-sent events (POST /chat/stream)
- Health and readiness checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServe,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serveCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serveCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	if err := validateServeConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	deps, err := newDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	workflow := deps.newWorkflow(cfg)

	// Warm the lexical index so the first query does not pay for it.
	// Retrieval loads it lazily when this fails.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := workflow.Retrieval().LoadCorpus(warmCtx); err != nil {
		deps.logger.Warn("failed to preload corpus", "error", err)
	}
	warmCancel()

	srv := server.New(cfg, workflow, deps.store)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		deps.logger.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		deps.logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		deps.logger.Info("server stopped gracefully")
		return nil
	}
}

func validateServeConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Elasticsearch.URL == "" {
		return fmt.Errorf("elasticsearch URL is required")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	return nil
}
