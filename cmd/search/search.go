// Package search implements the search command.
package search

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
)

const (
	// DefaultLimit is the number of results shown when --limit is not set.
	DefaultLimit   = 20
	minQueryLength = 2
)

// ErrQueryTooShort is returned for keywords under two characters.
var ErrQueryTooShort = errors.New("search keyword must be at least 2 characters")

// Command returns the search command.
func Command(flags *cmdcommon.GlobalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search stored articles by keyword",
		Long: `Search the title, summary and content of stored articles. The match is
case-insensitive; results are ordered newest first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.TrimSpace(strings.Join(args, " "))
			if utf8.RuneCountInString(keyword) < minQueryLength {
				return ErrQueryTooShort
			}

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

			articles, err := crawl.NewReader(store, deps.Logger).Search(ctx, keyword, limit)
			if err != nil {
				return err
			}

			cmdcommon.RenderArticles(cmd.OutOrStdout(), articles)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultLimit, "maximum number of results")

	return cmd
}
