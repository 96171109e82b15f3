package common

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
)

const (
	titleWidth = 60
	dateLayout = "2006-01-02"
)

// NewTable returns a table writer mirrored to w.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// RenderArticles prints articles as a table, or a notice when empty.
func RenderArticles(w io.Writer, articles []domain.Article) {
	if len(articles) == 0 {
		_, _ = io.WriteString(w, "No articles found.\n")
		return
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"#", "Title", "Source", "Published", "Score", "Tags"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: titleWidth},
		{Name: "Score", Align: text.AlignRight},
	})

	for i := range articles {
		a := &articles[i]
		t.AppendRow(table.Row{
			i + 1,
			a.Title,
			a.Source,
			a.PublishedAt.Format(dateLayout),
			formatScore(a),
			strings.Join(a.Tags, ", "),
		})
	}

	t.AppendFooter(table.Row{"", "Total", len(articles)})
	t.Render()
}

func formatScore(a *domain.Article) string {
	if !a.Processed {
		return "-"
	}
	return strconv.FormatFloat(a.RelevanceScore, 'f', 2, 64)
}

// RenderCrawlStats prints the outcome of one crawl run.
func RenderCrawlStats(w io.Writer, stats domain.CrawlStats) {
	t := NewTable(w)
	t.SetTitle("Crawl " + stats.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Sources crawled", stats.SourcesCrawled},
		{"Source errors", stats.Errors},
		{"Articles seen", stats.TotalArticles},
		{"Relevant articles", stats.RelevantArticles},
		{"Duration", stats.Duration().Round(time.Millisecond)},
	})
	t.Render()
}

// RenderSummary prints the store summary.
func RenderSummary(w io.Writer, summary domain.StoreSummary) {
	last := "never"
	if summary.LastCrawled != nil {
		last = summary.LastCrawled.Format(time.RFC3339)
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total articles", summary.TotalArticles},
		{"Sources", summary.NumSources},
		{"Last crawled", last},
	})
	t.Render()

	if len(summary.Sources) == 0 {
		return
	}

	st := NewTable(w)
	st.AppendHeader(table.Row{"Source"})
	for _, name := range summary.Sources {
		st.AppendRow(table.Row{name})
	}
	st.Render()
}
