// Package publish implements the publish command, which pushes recent
// relevant articles to the configured publishing API.
package publish

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/publisher"
)

const (
	defaultDays  = 7
	defaultLimit = 50

	summaryTitleLayout = "January 2, 2006"
)

// Command returns the publish command.
func Command(flags *cmdcommon.GlobalFlags) *cobra.Command {
	var (
		days    int
		limit   int
		summary bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish recent relevant articles",
		Long: `Publish relevant articles from the last --days days to the publishing
API, one post per article, or a single markdown digest with --summary.
--dry-run prints the digest instead of posting anything.`,
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

			recent, err := crawl.NewReader(store, deps.Logger).Recent(ctx, limit, days)
			if err != nil {
				return err
			}
			articles := relevant(recent)

			title := SummaryTitle(time.Now())
			out := cmd.OutOrStdout()
			if dryRun {
				_, _ = io.WriteString(out, publisher.RenderSummary(title, articles, time.Now().UTC()))
				return nil
			}

			client := publisher.New(deps.Config.Publisher, nil, deps.Logger)
			if !client.Enabled() {
				return fmt.Errorf("%w: set publisher.enabled, publisher.api_url and publisher.api_key", publisher.ErrDisabled)
			}

			if summary {
				if postErr := client.SummaryPost(ctx, title, articles); postErr != nil {
					return postErr
				}
				_, _ = fmt.Fprintf(out, "Published summary of %d articles.\n", min(len(articles), publisher.MaxSummaryArticles))
				return nil
			}

			published, err := client.PublishBatch(ctx, articles)
			if err != nil {
				return fmt.Errorf("publish interrupted after %d articles: %w", published, err)
			}
			_, _ = fmt.Fprintf(out, "Published %d of %d articles.\n", published, len(articles))
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", defaultDays, "publish articles published within this many days")
	cmd.Flags().IntVarP(&limit, "limit", "l", defaultLimit, "maximum number of articles to consider")
	cmd.Flags().BoolVar(&summary, "summary", false, "publish one markdown digest instead of individual posts")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest without publishing")

	return cmd
}

// SummaryTitle returns the digest title for the given day.
func SummaryTitle(day time.Time) string {
	return "Tech Investment Roundup - " + day.Format(summaryTitleLayout)
}

func relevant(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	for i := range articles {
		if articles[i].Relevant {
			out = append(out, articles[i])
		}
	}
	return out
}
