package airchat

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sjvalley/go-airchat/pkg/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question from the command line",
	Long: `Run one question through the full chat workflow and print the
answer with its sources. Useful for smoke-testing a deployment without
starting the HTTP server.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askLocation string

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askLocation, "location", "", "Location for air quality questions (city, county, or zip)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := newDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	workflow := deps.newWorkflow(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	question := strings.Join(args, " ")
	state, err := workflow.Run(ctx, question, askLocation)
	if err != nil {
		return fmt.Errorf("workflow failed: %w", err)
	}

	fmt.Fprintln(os.Stdout, state.Answer)

	if len(state.Sources) > 0 {
		fmt.Fprintln(os.Stdout, "\nSources:")
		for _, s := range state.Sources {
			fmt.Fprintf(os.Stdout, "- %s (%s)\n", s.Title, s.URL)
		}
	}
	return nil
}
