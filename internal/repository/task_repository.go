package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// TaskRepository handles CRUD for tasks. Every lookup is scoped by owner:
// a task owned by someone else is indistinguishable from a missing one.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Parameters == nil {
		task.Parameters = model.Params{}
	}
	if task.Tags == nil {
		task.Tags = model.StringList{}
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := findScoped(r.db.WithContext(ctx), ownerID, taskID, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns every task of ownerID in creation order. Owner 0 has no tasks.
func (r *TaskRepository) List(ctx context.Context, ownerID uint) ([]model.Task, error) {
	tasks := []model.Task{}
	if ownerID == 0 {
		return tasks, nil
	}
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListPending returns incomplete tasks, earliest due date first and undated ones last.
func (r *TaskRepository) ListPending(ctx context.Context, ownerID uint) ([]model.Task, error) {
	tasks := []model.Task{}
	if ownerID == 0 {
		return tasks, nil
	}
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND completed = ?", ownerID, false).
		Order("due_date IS NULL, due_date ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return tasks, nil
}

// Update overwrites the supplied fields. Validation is the caller's job.
func (r *TaskRepository) Update(ctx context.Context, ownerID, taskID uint, update model.TaskUpdate) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findScoped(tx.Clauses(forUpdate), ownerID, taskID, &task); err != nil {
			return err
		}
		cols := update.Columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&task).Updates(cols).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return tx.First(&task, task.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarkComplete sets the completion flag. It returns true when the task is
// complete afterwards and false when it does not exist for ownerID.
func (r *TaskRepository) MarkComplete(ctx context.Context, ownerID, taskID uint) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := findScoped(tx.Clauses(forUpdate), ownerID, taskID, &task); err != nil {
			return err
		}
		if task.Completed {
			return nil
		}
		if err := tx.Model(&task).Update("completed", true).Error; err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		return nil
	})
	if errors.Is(err, model.ErrTaskNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the task; it reports whether a row was removed.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CategoriesInUse returns the distinct category labels on ownerID's tasks, sorted.
func (r *TaskRepository) CategoriesInUse(ctx context.Context, ownerID uint) ([]string, error) {
	categories := []string{}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("owner_id = ?", ownerID).
		Distinct().
		Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("list task categories: %w", err)
	}
	sort.Strings(categories)
	return categories, nil
}

func findScoped(q *gorm.DB, ownerID, taskID uint, task *model.Task) error {
	err := q.Where("owner_id = ? AND id = ?", ownerID, taskID).First(task).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrTaskNotFound
	default:
		return fmt.Errorf("find task: %w", err)
	}
}
