// Package scheduler triggers crawl runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
)

// ErrInvalidSchedule is returned for an unparseable cron expression.
var ErrInvalidSchedule = errors.New("invalid cron schedule")

// Config holds the schedule settings.
type Config struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Cron is a five-field cron expression or a descriptor such as "@hourly".
	Cron string `mapstructure:"cron" yaml:"cron"`
	// RunOnStart triggers one run as soon as the scheduler starts.
	RunOnStart bool `mapstructure:"run_on_start" yaml:"run_on_start"`
}

// Runner runs one crawl.
type Runner interface {
	Run(ctx context.Context, opts crawl.RunOptions) domain.CrawlStats
}

// Scheduler runs crawls on a cron schedule. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cfg      Config
	runner   Runner
	opts     crawl.RunOptions
	cron     *cron.Cron
	schedule cron.Schedule
	logger   logger.Interface

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates cfg and creates a Scheduler.
func New(cfg Config, runner Runner, log logger.Interface) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	schedule, err := parser.Parse(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, cfg.Cron, err)
	}

	log = log.WithComponent("scheduler")
	cronLog := cronLogger{log: log}

	return &Scheduler{
		cfg:      cfg,
		runner:   runner,
		opts:     crawl.DefaultRunOptions(),
		schedule: schedule,
		logger:   log,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}, nil
}

// Start begins scheduling. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduled crawling disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	runCtx := s.ctx
	if _, err := s.cron.AddFunc(s.cfg.Cron, func() { s.trigger(runCtx, "cron") }); err != nil {
		s.cancel()
		s.cancel = nil
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()

	s.logger.Info("Scheduler started",
		"schedule", s.cfg.Cron,
		"next_run", s.Next().Format(time.RFC3339),
	)

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger(runCtx, "startup")
		}()
	}

	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Next returns the next scheduled run time after now.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(time.Now())
}

func (s *Scheduler) trigger(ctx context.Context, reason string) {
	s.logger.Info("Scheduled crawl triggered", "reason", reason)
	stats := s.runner.Run(ctx, s.opts)
	s.logger.Info("Scheduled crawl finished",
		"run_id", stats.RunID,
		"sources_crawled", stats.SourcesCrawled,
		"errors", stats.Errors,
		"next_run", s.Next().Format(time.RFC3339),
	)
}

// cronLogger adapts logger.Interface to cron.Logger.
type cronLogger struct {
	log logger.Interface
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
