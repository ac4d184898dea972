package service

import (
	"context"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// TaskService wraps task-related business logic. Every operation is
// scoped to the owner passed in, never to an owner named by the caller's payload.
type TaskService struct {
	taskRepo *repository.TaskRepository
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

func (s *TaskService) Create(ctx context.Context, owner *model.User, draft model.TaskDraft) (*model.Task, error) {
	norm, err := draft.Normalize()
	if err != nil {
		return nil, err
	}
	task := norm.Task(owner.ID)
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, owner *model.User, taskID uint) (*model.Task, error) {
	return s.taskRepo.Get(ctx, owner.ID, taskID)
}

func (s *TaskService) List(ctx context.Context, owner *model.User) ([]model.Task, error) {
	return s.taskRepo.List(ctx, owner.ID)
}

// Pending lists incomplete tasks, most urgent first.
func (s *TaskService) Pending(ctx context.Context, owner *model.User) ([]model.Task, error) {
	return s.taskRepo.ListPending(ctx, owner.ID)
}

func (s *TaskService) Update(ctx context.Context, owner *model.User, taskID uint, update model.TaskUpdate) (*model.Task, error) {
	norm, err := update.Normalize()
	if err != nil {
		return nil, err
	}
	return s.taskRepo.Update(ctx, owner.ID, taskID, norm)
}

// Complete marks a task as done and returns it. Completing twice is not an error.
func (s *TaskService) Complete(ctx context.Context, owner *model.User, taskID uint) (*model.Task, error) {
	ok, err := s.taskRepo.MarkComplete(ctx, owner.ID, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	return s.taskRepo.Get(ctx, owner.ID, taskID)
}

// Delete removes a task; a missing task is model.ErrTaskNotFound.
func (s *TaskService) Delete(ctx context.Context, owner *model.User, taskID uint) error {
	ok, err := s.taskRepo.Delete(ctx, owner.ID, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrTaskNotFound
	}
	return nil
}

func (s *TaskService) CategoriesInUse(ctx context.Context, owner *model.User) ([]string, error) {
	return s.taskRepo.CategoriesInUse(ctx, owner.ID)
}
