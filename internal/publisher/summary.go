package publisher

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
)

// MaxSummaryArticles caps the articles listed in a summary post.
const MaxSummaryArticles = 10

var summaryTags = []string{"summary", "investment", "tech"}

// RenderSummary renders the markdown body of a summary post.
func RenderSummary(title string, articles []domain.Article, generated time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "*Generated on %s*\n\n", generated.Format("January 2, 2006"))

	if len(articles) == 0 {
		b.WriteString("No relevant articles this period.\n")
		return b.String()
	}

	for i := range articles[:min(len(articles), MaxSummaryArticles)] {
		a := &articles[i]
		fmt.Fprintf(&b, "## %s\n\n", a.Title)
		fmt.Fprintf(&b, "**Source:** [%s](%s)\n\n", a.Source, a.URL)
		if summary := strings.TrimSpace(a.Summary); summary != "" {
			fmt.Fprintf(&b, "%s\n\n", summary)
		}
		if len(a.Tags) > 0 {
			fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(a.Tags, ", "))
		}
	}

	return b.String()
}
