package main

import (
	"log/slog"
	"os"

	"gorm.io/gorm"

	"task-manager/internal/auth"
	"task-manager/internal/config"
	"task-manager/internal/logging"
	"task-manager/internal/metrics"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *gorm.DB

	users     *service.UserService
	tasks     *service.TaskService
	reminders *service.ReminderService
	auth      *auth.Service
	metrics   *metrics.Metrics
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level).With("app", cfg.App.Name)
	slog.SetDefault(logger)

	db, err := repository.NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	users := service.NewUserService(userRepo)
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		users:     users,
		tasks:     service.NewTaskService(taskRepo),
		reminders: service.NewReminderService(taskRepo),
		auth:      auth.NewService(users, tokens),
		metrics:   metrics.New(),
	}, nil
}

func (a *app) seeder() *service.Seeder {
	return service.NewSeeder(a.db, a.logger)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
