package config

import (
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
)

// Application defaults.
const (
	DefaultAppName     = "Tech Investment Crawler"
	DefaultVersion     = "1.0.0"
	DefaultDatabaseURL = "sqlite://techcrawler.db"
	DefaultSchedule    = "0 */6 * * *"
	DefaultServerPort  = 5000
)

// DefaultSources returns the built-in news sources.
func DefaultSources() []domain.SourceConfig {
	return []domain.SourceConfig{
		{Name: "TechCrunch", Endpoint: "https://techcrunch.com/feed/", Kind: domain.SourceKindFeed},
		{Name: "The Verge", Endpoint: "https://www.theverge.com/rss/index.xml", Kind: domain.SourceKindFeed},
		{Name: "Hacker News", Endpoint: "https://news.ycombinator.com/", Kind: domain.SourceKindPage},
		{Name: "ArXiv CS", Endpoint: "https://arxiv.org/rss/cs.AI", Kind: domain.SourceKindFeed},
		{Name: "Wired", Endpoint: "https://www.wired.com/feed/category/tech/latest/rss", Kind: domain.SourceKindFeed},
		{Name: "Ars Technica", Endpoint: "https://arstechnica.com/feed/", Kind: domain.SourceKindFeed},
		{Name: "Dev.to", Endpoint: "https://dev.to/feed", Kind: domain.SourceKindFeed},
	}
}

// DefaultWatchList returns the built-in companies and trends.
func DefaultWatchList() domain.WatchList {
	return domain.WatchList{
		Companies: []domain.Company{
			{Name: "Apple", Ticker: "AAPL"},
			{Name: "Microsoft", Ticker: "MSFT"},
			{Name: "Nvidia", Ticker: "NVDA"},
			{Name: "Alphabet", Ticker: "GOOGL"},
			{Name: "Meta", Ticker: "META"},
			{Name: "Tesla", Ticker: "TSLA"},
			{Name: "Broadcom", Ticker: "AVGO"},
			{Name: "Qualcomm", Ticker: "QCOM"},
			{Name: "AMD", Ticker: "AMD"},
			{Name: "Cisco", Ticker: "CSCO"},
			{Name: "Intel", Ticker: "INTC"},
			{Name: "Snowflake", Ticker: "SNOW"},
			{Name: "Salesforce", Ticker: "CRM"},
			{Name: "Stripe", Ticker: "PRIVATE"},
			{Name: "Figma", Ticker: "PRIVATE"},
		},
		Trends: []string{
			"artificial intelligence",
			"machine learning",
			"quantum computing",
			"cloud computing",
			"cybersecurity",
			"blockchain",
			"5G",
			"edge computing",
			"autonomous vehicles",
			"augmented reality",
			"virtual reality",
			"metaverse",
			"web3",
			"api economy",
			"no-code",
			"devops",
			"microservices",
			"containers",
		},
	}
}

// SetDefaults registers every default with v. Values from the config
// file and the environment take precedence.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        DefaultAppName,
		"version":     DefaultVersion,
		"environment": "production",
		"debug":       false,
	})

	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	v.SetDefault("database", map[string]any{
		"url":               DefaultDatabaseURL,
		"max_open_conns":    10,
		"max_idle_conns":    5,
		"conn_max_lifetime": "5m",
	})

	v.SetDefault("http", map[string]any{
		"timeout":        fetch.DefaultTimeout.String(),
		"user_agent":     fetch.DefaultUserAgent,
		"rate_limit":     fetch.DefaultRateLimit,
		"max_body_bytes": fetch.DefaultMaxBodyBytes,
	})

	v.SetDefault("crawl", map[string]any{
		"delay":         "1s",
		"fetch_content": true,
	})

	v.SetDefault("schedule", map[string]any{
		"enabled":      true,
		"cron":         DefaultSchedule,
		"run_on_start": false,
	})

	v.SetDefault("server", map[string]any{
		"port":             DefaultServerPort,
		"read_timeout":     "15s",
		"write_timeout":    "30s",
		"idle_timeout":     "60s",
		"shutdown_timeout": "10s",
	})

	v.SetDefault("redis", map[string]any{
		"address":     "",
		"password":    "",
		"db":          0,
		"content_ttl": "24h",
	})

	v.SetDefault("publisher", map[string]any{
		"enabled":      false,
		"api_url":      "",
		"api_key":      "",
		"timeout":      "10s",
		"max_attempts": 3,
	})

	v.SetDefault("sources", sourcesToMaps(DefaultSources()))
	v.SetDefault("watchlist", watchListToMap(DefaultWatchList()))
}

func sourcesToMaps(sources []domain.SourceConfig) []map[string]any {
	out := make([]map[string]any, 0, len(sources))
	for _, s := range sources {
		out = append(out, map[string]any{
			"name":     s.Name,
			"endpoint": s.Endpoint,
			"kind":     string(s.Kind),
		})
	}
	return out
}

func watchListToMap(w domain.WatchList) map[string]any {
	companies := make([]map[string]any, 0, len(w.Companies))
	for _, c := range w.Companies {
		companies = append(companies, map[string]any{"name": c.Name, "ticker": c.Ticker})
	}
	return map[string]any{
		"companies": companies,
		"trends":    w.Trends,
	}
}
