// Package httpd implements the serve command: the read API, the metrics
// endpoint and the crawl scheduler in one process.
package httpd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/api"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/scheduler"
)

const serviceName = "techcrawler"

// Command returns the serve command.
func Command(flags *cmdcommon.GlobalFlags) *cobra.Command {
	var (
		port       int
		noSchedule bool
	)

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"httpd"},
		Short:   "Start the HTTP API and the crawl scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				deps.Config.Server.Port = port
			}
			if noSchedule {
				deps.Config.Schedule.Enabled = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return Start(ctx, deps)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "disable scheduled crawling")

	return cmd
}

// Start wires the application and serves until ctx is cancelled.
func Start(ctx context.Context, deps cmdcommon.CommandDeps) error {
	cfg := deps.Config
	log := deps.Logger

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := cmdcommon.NewApp(ctx, deps)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			log.Error("Failed to close resources", "error", closeErr)
		}
	}()

	sched, err := scheduler.New(cfg.Schedule, app.Orchestrator, log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if startErr := sched.Start(ctx); startErr != nil {
		return fmt.Errorf("failed to start scheduler: %w", startErr)
	}
	defer sched.Stop()

	router := api.NewRouter(api.RouterOptions{
		Handler: api.NewHandler(app.Store, app.Orchestrator, app.Orchestrator, log),
		Health: api.HealthOptions{
			ServiceName:    serviceName,
			ServiceVersion: cfg.App.Version,
			StartTime:      time.Now(),
			Checks: map[string]api.HealthChecker{
				"database": app.Store.Ping,
			},
		},
		Metrics:  app.Metrics,
		Gatherer: app.Registry,
		Logger:   log,
	})

	server := api.NewServer(cfg.Server, router, log)
	log.Info("Starting techcrawler",
		"addr", server.Addr(),
		"sources", len(cfg.Sources),
		"schedule_enabled", cfg.Schedule.Enabled,
	)

	return server.Run(ctx)
}
