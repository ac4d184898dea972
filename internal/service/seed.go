package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// Seeder fills an empty database with demo accounts and tasks.
// All of it is inserted in one transaction or not at all.
type Seeder struct {
	db       *gorm.DB
	logger   *slog.Logger
	now      func() time.Time
	fixtures func(now time.Time) []seedUser
}

func NewSeeder(db *gorm.DB, logger *slog.Logger) *Seeder {
	return &Seeder{
		db:       db,
		logger:   logger,
		now:      time.Now,
		fixtures: demoFixtures,
	}
}

type seedUser struct {
	input RegisterInput
	tasks []model.TaskDraft
}

// Seed creates the demo data unless some account already exists.
// It reports whether anything was inserted.
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	var created int
	seeded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := repository.NewUserRepository(tx)
		n, err := userRepo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("database already has users, skipping seed", "users", n)
			return nil
		}

		users := NewUserService(userRepo)
		tasks := NewTaskService(repository.NewTaskRepository(tx))
		for _, su := range s.fixtures(s.now()) {
			user, err := users.Register(ctx, su.input)
			if err != nil {
				return fmt.Errorf("seed user %s: %w", su.input.Username, err)
			}
			for _, draft := range su.tasks {
				if _, err := tasks.Create(ctx, user, draft); err != nil {
					return fmt.Errorf("seed task %q: %w", draft.Name, err)
				}
				created++
			}
			s.logger.Info("seeded user", "username", user.Username, "id", user.ID)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.logger.Info("seed complete", "tasks", created)
	}
	return seeded, nil
}

func demoFixtures(now time.Time) []seedUser {
	in := func(days int) *time.Time {
		t := now.AddDate(0, 0, days)
		return &t
	}
	p := func(v int) *int { return &v }

	return []seedUser{
		{
			input: RegisterInput{Username: "admin", FullName: "Admin User", Email: "admin@taskmanager.com", Password: "admin123"},
			tasks: []model.TaskDraft{
				{Name: "Review System Architecture", Description: "Review and update the system architecture documentation", Priority: p(3), Category: "Work", Tags: []string{"important", "documentation"}, DueDate: in(2)},
				{Name: "User Management Audit", Description: "Audit user permissions and access levels", Priority: p(2), Category: "Security", Tags: []string{"security", "audit"}, DueDate: in(5)},
				{Name: "Setup Monitoring", Description: "Configure application monitoring and alerts", Priority: p(2), Category: "DevOps", Tags: []string{"infrastructure", "monitoring"}},
			},
		},
		{
			input: RegisterInput{Username: "demo", FullName: "Demo User", Email: "demo@taskmanager.com", Password: "demo123"},
			tasks: []model.TaskDraft{
				{Name: "Welcome to Task Manager!", Description: "Explore the features and get familiar with the interface", Priority: p(1), Category: "Personal", Tags: []string{"getting-started"}},
				{Name: "Plan Weekly Goals", Description: "Set objectives for the upcoming week", Priority: p(2), Category: "Planning", Tags: []string{"goals", "planning"}, DueDate: in(1)},
				{Name: "Team Meeting Preparation", Description: "Prepare slides and agenda for the team meeting", Priority: p(3), Category: "Work", Tags: []string{"meeting", "urgent"}, DueDate: in(3)},
				{Name: "Buy Groceries", Description: "Milk, eggs, bread, vegetables, and fruits", Priority: p(1), Category: "Personal", Tags: []string{"shopping", "errands"}, DueDate: in(1)},
				{Name: "Read Documentation", Description: "Go through the PostgreSQL performance tuning guide", Priority: p(1), Category: "Learning", Tags: []string{"database", "learning"}},
			},
		},
	}
}
