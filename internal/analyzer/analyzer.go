// Package analyzer scores and tags articles against the watch-list of
// companies and technology trends. Analysis is a pure function of the
// article text and the watch-list.
package analyzer

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
)

// Weights of each matched term in the relevance score.
const (
	CompanyWeight    = 0.3
	TrendWeight      = 0.2
	InvestmentWeight = 0.1
)

var (
	// DefaultExclusions veto relevance whenever they occur.
	DefaultExclusions = []string{"gaming", "entertainment", "sports", "celebrity"}
	// DefaultInvestmentKeywords add to the score but never decide relevance.
	DefaultInvestmentKeywords = []string{"invest", "stock", "market", "ipo", "acquisition"}
)

// Result is the outcome of analyzing one article.
type Result struct {
	IsRelevant     bool     `json:"is_relevant"`
	RelevanceScore float64  `json:"relevance_score"`
	Companies      []string `json:"companies"`
	Trends         []string `json:"trends"`
	Tags           []string `json:"tags"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithExclusions replaces the exclusion list.
func WithExclusions(terms []string) Option {
	return func(a *Analyzer) {
		a.exclusions = newTermMatcher(terms)
	}
}

// WithInvestmentKeywords replaces the investment keyword list.
func WithInvestmentKeywords(terms []string) Option {
	return func(a *Analyzer) {
		a.investment = newTermMatcher(terms)
	}
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	companyTags  []string
	companyTerms *termMatcher
	trends       *termMatcher
	exclusions   *termMatcher
	investment   *termMatcher
}

// New builds an Analyzer for the given watch-list. Company tags render
// as "TICKER (Name)" with the name title-cased.
func New(watchList domain.WatchList, opts ...Option) *Analyzer {
	caser := cases.Title(language.English)
	companyTags := make([]string, 0, len(watchList.Companies))
	names := make([]string, 0, len(watchList.Companies))
	seenNames := make(map[string]struct{}, len(watchList.Companies))
	for _, c := range watchList.Companies {
		name := normalizeTerm(c.Name)
		if name == "" {
			continue
		}
		// The first entry of a repeated name wins.
		if _, dup := seenNames[name]; dup {
			continue
		}
		seenNames[name] = struct{}{}
		companyTags = append(companyTags, strings.TrimSpace(c.Ticker)+" ("+caser.String(name)+")")
		names = append(names, name)
	}

	a := &Analyzer{
		companyTags:  companyTags,
		companyTerms: newTermMatcher(names),
		trends:       newTermMatcher(watchList.Trends),
		exclusions:   newTermMatcher(DefaultExclusions),
		investment:   newTermMatcher(DefaultInvestmentKeywords),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analyze scores and tags a single article without modifying it.
func (a *Analyzer) Analyze(article *domain.Article) Result {
	text := strings.ToLower(article.Title + " " + article.Summary + " " + article.Content)

	companyHits := a.companyTerms.find(text)
	trendHits := a.trends.find(text)

	companies := make([]string, 0, len(companyHits))
	seen := make(map[string]struct{}, len(companyHits)+len(trendHits))
	for _, idx := range companyHits {
		tag := a.companyTags[idx]
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		companies = append(companies, tag)
	}

	trends := make([]string, 0, len(trendHits))
	for _, idx := range trendHits {
		tag := trendTag(a.trends.terms[idx])
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		trends = append(trends, tag)
	}

	tags := make([]string, 0, len(companies)+len(trends))
	tags = append(tags, companies...)
	tags = append(tags, trends...)

	hasSubject := len(companyHits) > 0 || len(trendHits) > 0

	return Result{
		IsRelevant:     hasSubject && !a.exclusions.any(text),
		RelevanceScore: a.score(text, companyHits, len(trendHits)),
		Companies:      companies,
		Trends:         trends,
		Tags:           tags,
	}
}

// AnalyzeBatch enriches articles in place and returns the same slice.
func (a *Analyzer) AnalyzeBatch(articles []domain.Article) []domain.Article {
	for i := range articles {
		res := a.Analyze(&articles[i])
		articles[i].Relevant = res.IsRelevant
		articles[i].RelevanceScore = res.RelevanceScore
		articles[i].Tags = res.Tags
		articles[i].Processed = true
	}
	return articles
}

// MaxScore is the weight achieved by an article matching every term.
func (a *Analyzer) MaxScore() float64 {
	return CompanyWeight*float64(a.companyTerms.len()) +
		TrendWeight*float64(a.trends.len()) +
		InvestmentWeight*float64(a.investment.len())
}

// score normalizes the achieved weight by MaxScore. Each company
// saturates at CompanyWeight no matter how often it is mentioned.
func (a *Analyzer) score(text string, companyHits []int, trendCount int) float64 {
	if a.companyTerms.len() == 0 && a.trends.len() == 0 {
		return 0
	}
	maxScore := a.MaxScore()
	if maxScore == 0 {
		return 0
	}

	var achieved float64
	for _, idx := range companyHits {
		count := strings.Count(text, a.companyTerms.terms[idx])
		achieved += math.Min(float64(count)*CompanyWeight, CompanyWeight)
	}
	achieved += TrendWeight * float64(trendCount)
	achieved += InvestmentWeight * float64(len(a.investment.find(text)))

	return math.Max(0, math.Min(achieved/maxScore, 1))
}

// trendTag renders a trend as UPPER_SNAKE_CASE.
func trendTag(trend string) string {
	return strings.ToUpper(strings.Join(strings.Fields(trend), "_"))
}
