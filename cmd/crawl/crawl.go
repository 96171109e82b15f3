// Package crawl implements the crawl command, a single pass over every
// configured source.
package crawl

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
	crawlpkg "github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
)

// Command returns the crawl command.
func Command(flags *cmdcommon.GlobalFlags) *cobra.Command {
	var (
		noPersist bool
		noAnalyze bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every configured source once",
		Long: `Fetch every configured source in order, analyze the articles against
the watch list and upsert the relevant ones into the article store.
A failing source is logged and counted; the run continues.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := cmdcommon.NewApp(ctx, deps)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := app.Close(); closeErr != nil {
					deps.Logger.Error("Failed to close resources", "error", closeErr)
				}
			}()

			opts := crawlpkg.RunOptions{Persist: !noPersist, Analyze: !noAnalyze}
			stats := app.Orchestrator.Run(ctx, opts)

			cmdcommon.RenderCrawlStats(cmd.OutOrStdout(), stats)

			if stats.SourcesCrawled == 0 && stats.Errors > 0 {
				return fmt.Errorf("crawl %s: all %d sources failed", stats.RunID, stats.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "do not write articles to the store")
	cmd.Flags().BoolVar(&noAnalyze, "no-analyze", false, "skip relevance analysis and keep every article")

	return cmd
}
