package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"task-manager/internal/bot"
	"task-manager/internal/config"
	"task-manager/internal/httpapi"
	"task-manager/internal/logging"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when a token is configured, the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	if a.cfg.App.Seed {
		if _, err := a.seeder().Seed(ctx); err != nil {
			return err
		}
	}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, logger, func(cfg config.Config) {
			logging.SetLevel(cfg.Log.Level)
		})
		if err != nil {
			logger.Warn("config watcher disabled", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	if a.cfg.Telegram.Enabled() {
		stopBot, err := startBot(ctx, a)
		if err != nil {
			return err
		}
		defer stopBot()
	}

	proxies, err := a.cfg.HTTP.ProxyPrefixes()
	if err != nil {
		return err
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Users:   a.users,
		Tasks:   a.tasks,
		Auth:    a.auth,
		Metrics: a.metrics,
		Logger:  logger,
		Ping: func(ctx context.Context) error {
			return repository.Ping(ctx, a.db)
		},
		Origins:    a.cfg.HTTP.Origins,
		LoginRate:  a.cfg.HTTP.LoginRate,
		LoginBurst: a.cfg.HTTP.LoginBurst,
		ClientIP:   httpapi.NewClientIP(proxies),
	})
	server := httpapi.NewServer(a.cfg.HTTP, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("task manager started", "version", a.cfg.App.Version, "environment", a.cfg.App.Environment)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// startBot runs the Telegram poller and the digest schedule. The returned
// stop function ends both, whether or not ctx has been cancelled.
func startBot(ctx context.Context, a *app) (func(), error) {
	telegramBot, err := bot.New(a.cfg.Telegram.Token, bot.Deps{
		Users:     a.users,
		Tasks:     a.tasks,
		Reminders: a.reminders,
		Auth:      a.auth,
		Metrics:   a.metrics,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	scheduler := service.NewSchedulerService(time.Local, a.logger)
	return runBot(ctx, telegramBot, scheduler, a.cfg.Telegram, a.logger)
}

// poller is the part of *bot.Bot that runBot drives.
type poller interface {
	Start(ctx context.Context) error
	SendDailyReports(ctx context.Context) error
}

func runBot(ctx context.Context, p poller, scheduler *service.SchedulerService, cfg config.TelegramConfig, logger *slog.Logger) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	if _, err := scheduler.Schedule(cfg.At, cfg.Interval, func() {
		jobCtx, jobCancel := context.WithTimeout(ctx, 30*time.Second)
		defer jobCancel()
		if err := p.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("daily reports", "error", err)
		}
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule reports: %w", err)
	}
	scheduler.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("bot stopped with error", "error", err)
		}
	}()

	return func() {
		cancel()
		scheduler.Stop()
		<-done
	}, nil
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()
			// newApp already migrated; report what exists.
			return reportSchema(cmd, a.db)
		},
	}
}

func reportSchema(cmd *cobra.Command, db *gorm.DB) error {
	for _, table := range []string{"users", "tasks"} {
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("table %s missing after migration", table)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "table %s ok\n", table)
	}
	return nil
}

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users and tasks into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()
			seeded, err := a.seeder().Seed(cmd.Context())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "seeded demo data")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "database not empty, nothing to do")
			}
			return nil
		},
	}
}
