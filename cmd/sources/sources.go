// Package sources provides the sources command: list, check and export
// the configured news sources.
package sources

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cmdcommon "github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/source"
)

const yamlIndent = 2

// NewSourcesCommand creates the sources command and its subcommands.
func NewSourcesCommand(flags *cmdcommon.GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage news sources",
		Long:  `List, check and export the configured news sources.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand(flags))
	cmd.AddCommand(newCheckCommand(flags))
	cmd.AddCommand(newExportCommand(flags))

	return cmd
}

func newListCommand(flags *cmdcommon.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}
			RenderList(cmd.OutOrStdout(), deps.Config.Sources)
			return nil
		},
	}
}

func newCheckCommand(flags *cmdcommon.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fetch every source once and report what it yields",
		Long: `Fetch and extract every configured source without analyzing or storing
anything. Useful after editing the source list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}

			srcs, err := source.NewAll(deps.Config.Sources, source.Deps{
				Fetcher: fetch.NewClient(deps.Config.HTTP, nil),
				Logger:  deps.Logger,
			})
			if err != nil {
				return fmt.Errorf("failed to build sources: %w", err)
			}

			results := Check(cmd.Context(), srcs, deps.Logger)
			RenderCheck(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func newExportCommand(flags *cmdcommon.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print sources and watch list as a YAML config fragment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}
			return Export(cmd.OutOrStdout(), deps.Config.Sources, deps.Config.WatchList)
		},
	}
}

// RenderList prints sources as a table.
func RenderList(w io.Writer, cfgs []domain.SourceConfig) {
	t := cmdcommon.NewTable(w)
	t.AppendHeader(table.Row{"#", "Name", "Kind", "Endpoint"})
	for i, c := range cfgs {
		t.AppendRow(table.Row{i + 1, c.Name, c.Kind, c.Endpoint})
	}
	t.Render()
}

// CheckResult is the outcome of fetching one source.
type CheckResult struct {
	Name     string
	Kind     domain.SourceKind
	Articles int
	Duration time.Duration
	Err      error
}

// Check fetches and extracts each source in order.
func Check(ctx context.Context, srcs []source.Source, log logger.Interface) []CheckResult {
	results := make([]CheckResult, 0, len(srcs))
	for _, src := range srcs {
		cfg := src.Config()
		res := CheckResult{Name: cfg.Name, Kind: cfg.Kind}

		started := time.Now()
		payload, err := src.Fetch(ctx)
		if err == nil {
			var articles []domain.Article
			articles, err = src.Extract(ctx, payload)
			res.Articles = len(articles)
		}
		res.Duration = time.Since(started)
		res.Err = err

		if err != nil {
			log.Warn("Source check failed", "source", cfg.Name, "error", err)
		}
		results = append(results, res)
	}
	return results
}

// RenderCheck prints check results as a table.
func RenderCheck(w io.Writer, results []CheckResult) {
	t := cmdcommon.NewTable(w)
	t.AppendHeader(table.Row{"Name", "Kind", "Status", "Articles", "Duration"})

	failed := 0
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			failed++
			status = "failed"
			if kind := fetch.KindOf(r.Err); kind != "" {
				status = "failed (" + string(kind) + ")"
			}
		}
		t.AppendRow(table.Row{r.Name, r.Kind, status, r.Articles, r.Duration.Round(time.Millisecond)})
	}

	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d failed", failed), "", ""})
	t.Render()
}

type exportDocument struct {
	Sources   []domain.SourceConfig `yaml:"sources"`
	WatchList domain.WatchList      `yaml:"watchlist"`
}

// Export writes sources and watch list in the config file format.
func Export(w io.Writer, cfgs []domain.SourceConfig, watchList domain.WatchList) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	if err := enc.Encode(exportDocument{Sources: cfgs, WatchList: watchList}); err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	return enc.Close()
}
