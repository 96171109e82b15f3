// Package cmd implements the command-line interface for techcrawler.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/techcrawler/cmd/articles"
	"github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
	"github.com/jonesrussell/north-cloud/techcrawler/cmd/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/cmd/httpd"
	"github.com/jonesrussell/north-cloud/techcrawler/cmd/migrate"
	"github.com/jonesrussell/north-cloud/techcrawler/cmd/publish"
	"github.com/jonesrussell/north-cloud/techcrawler/cmd/search"
	"github.com/jonesrussell/north-cloud/techcrawler/cmd/sources"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/config"
)

// Version is set at build time with -ldflags.
var Version = config.DefaultVersion

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &common.GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "techcrawler",
		Short: "Tech investment news crawler",
		Long: `techcrawler fetches technology news feeds and pages, scores each article
against a watch list of companies and trends, and keeps the relevant ones
in a URL-deduplicated article store.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "techcrawler version %s\n", Version)
		},
	})

	rootCmd.AddCommand(crawl.Command(flags))
	rootCmd.AddCommand(httpd.Command(flags))
	rootCmd.AddCommand(search.Command(flags))
	rootCmd.AddCommand(articles.RecentCommand(flags))
	rootCmd.AddCommand(articles.StatsCommand(flags))
	rootCmd.AddCommand(publish.Command(flags))
	rootCmd.AddCommand(migrate.Command(flags))
	rootCmd.AddCommand(sources.NewSourcesCommand(flags))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	// .env is optional
	_ = godotenv.Load()

	return NewRootCommand().ExecuteContext(context.Background())
}
