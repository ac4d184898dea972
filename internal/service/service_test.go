package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"task-manager/internal/config"
	"task-manager/internal/repository"
)

type testEnv struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	taskRepo *repository.TaskRepository
	users    *UserService
	tasks    *TaskService
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(config.DatabaseConfig{
		Driver:  "sqlite",
		DSN:     fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name),
		MaxOpen: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	return testEnv{
		db:       db,
		userRepo: userRepo,
		taskRepo: taskRepo,
		users:    NewUserService(userRepo),
		tasks:    NewTaskService(taskRepo),
		logger:   logger,
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
