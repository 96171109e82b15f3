// Package articles implements the read-only store commands recent and stats.
package articles

import (
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
)

const (
	// DefaultRecentLimit is the number of articles recent shows by default.
	DefaultRecentLimit = 20
	// DefaultRecentDays is the default publication window of recent.
	DefaultRecentDays = 7
)

// RecentCommand returns the recent command.
func RecentCommand(flags *cmdcommon.GlobalFlags) *cobra.Command {
	var (
		limit int
		days  int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently published articles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := cmdcommon.OpenStore(ctx, deps)
			if err != nil {
				return err
			}
			defer store.Close()

			articles, err := crawl.NewReader(store, deps.Logger).Recent(ctx, limit, days)
			if err != nil {
				return err
			}

			cmdcommon.RenderArticles(cmd.OutOrStdout(), articles)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultRecentLimit, "maximum number of articles")
	cmd.Flags().IntVarP(&days, "days", "d", DefaultRecentDays, "only articles published within this many days")

	return cmd
}

// StatsCommand returns the stats command.
func StatsCommand(flags *cmdcommon.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show article store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := cmdcommon.OpenStore(ctx, deps)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := crawl.NewReader(store, deps.Logger).Stats(ctx)
			if err != nil {
				return err
			}

			cmdcommon.RenderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}
