// Package config assembles the immutable application configuration from
// defaults, an optional YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/api"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/publisher"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/scheduler"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

var (
	// ErrInvalidEnvironment is returned for an unknown app.environment.
	ErrInvalidEnvironment = errors.New("invalid environment")
	// ErrNoSources is returned when no sources are configured.
	ErrNoSources = errors.New("no sources configured")
	// ErrInvalidSource is returned for a source without name or endpoint.
	ErrInvalidSource = errors.New("invalid source")
	// ErrDuplicateSource is returned when two sources share a name.
	ErrDuplicateSource = errors.New("duplicate source name")
	// ErrMissingDatabaseURL is returned when database.url is empty.
	ErrMissingDatabaseURL = errors.New("database url must be specified")
	// ErrInvalidDelay is returned for a negative crawl delay.
	ErrInvalidDelay = errors.New("crawl delay must not be negative")
	// ErrInvalidWatchList is returned for a watch-list term that cannot
	// round-trip through the persisted tag list.
	ErrInvalidWatchList = errors.New("invalid watch list")
)

// tagSeparator separates persisted tags. Watch-list terms must not contain it.
const tagSeparator = ","

// AppConfig holds application metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// RedisConfig configures the optional content cache.
type RedisConfig struct {
	// Address is host:port. Empty disables the cache.
	Address    string        `mapstructure:"address"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ContentTTL time.Duration `mapstructure:"content_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Address) != ""
}

// Config is the full application configuration.
type Config struct {
	App       AppConfig             `mapstructure:"app"`
	Logger    logger.Config         `mapstructure:"logger"`
	Database  storage.Config        `mapstructure:"database"`
	HTTP      fetch.Config          `mapstructure:"http"`
	Crawl     crawl.Config          `mapstructure:"crawl"`
	Schedule  scheduler.Config      `mapstructure:"schedule"`
	Server    api.Config            `mapstructure:"server"`
	Redis     RedisConfig           `mapstructure:"redis"`
	Publisher publisher.Config      `mapstructure:"publisher"`
	Sources   []domain.SourceConfig `mapstructure:"sources"`
	WatchList domain.WatchList      `mapstructure:"watchlist"`
}

// Load decodes the settings held by v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			sourceKindHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}

	if decodeErr := decoder.Decode(v.AllSettings()); decodeErr != nil {
		return nil, fmt.Errorf("decode config: %w", decodeErr)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, c.App.Environment)
	}

	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}

	if c.Crawl.Delay < 0 {
		return ErrInvalidDelay
	}

	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	names := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if strings.TrimSpace(src.Name) == "" || strings.TrimSpace(src.Endpoint) == "" {
			return fmt.Errorf("%w: sources[%d] needs a name and an endpoint", ErrInvalidSource, i)
		}
		if _, kindErr := domain.ParseSourceKind(string(src.Kind)); kindErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSource, src.Name, kindErr)
		}
		if _, dup := names[src.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name)
		}
		names[src.Name] = struct{}{}
	}

	return c.validateWatchList()
}

func (c *Config) validateWatchList() error {
	for i, company := range c.WatchList.Companies {
		if strings.Contains(company.Name, tagSeparator) || strings.Contains(company.Ticker, tagSeparator) {
			return fmt.Errorf("%w: watchlist.companies[%d] %q contains %q", ErrInvalidWatchList, i, company.Name, tagSeparator)
		}
	}
	for i, trend := range c.WatchList.Trends {
		if strings.Contains(trend, tagSeparator) {
			return fmt.Errorf("%w: watchlist.trends[%d] %q contains %q", ErrInvalidWatchList, i, trend, tagSeparator)
		}
	}
	return nil
}

// sourceKindHook accepts legacy kind names such as "rss" and "html".
func sourceKindHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(domain.SourceKind("")) {
		return data, nil
	}
	return domain.ParseSourceKind(reflect.ValueOf(data).String())
}

// NewViper returns a viper instance with defaults, the environment and,
// when configFile is non-empty, that YAML file applied.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	return v, nil
}
