package publish_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/techcrawler/cmd/publish"
)

func TestSummaryTitle(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 10, 5, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "Tech Investment Roundup - October 5, 2026", publish.SummaryTitle(day))
}
