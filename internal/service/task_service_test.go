package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/model"
)

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, err := env.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	bob, err := env.users.Register(ctx, RegisterInput{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	task, err := env.tasks.Create(ctx, alice, model.TaskDraft{Name: "Ship it", Priority: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, task.OwnerID)
	assert.Equal(t, model.DefaultTaskCategory, task.Category)

	done, err := env.tasks.Complete(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, 2, done.Priority)

	again, err := env.tasks.Complete(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.True(t, again.Completed)

	_, err = env.tasks.Complete(ctx, bob, task.ID)
	assert.True(t, errors.Is(err, model.ErrTaskNotFound))

	bobs, err := env.tasks.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobs)

	err = env.tasks.Delete(ctx, bob, task.ID)
	assert.True(t, errors.Is(err, model.ErrTaskNotFound))
	require.NoError(t, env.tasks.Delete(ctx, alice, task.ID))
	err = env.tasks.Delete(ctx, alice, task.ID)
	assert.True(t, errors.Is(err, model.ErrTaskNotFound))
}

func TestTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, err := env.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	_, err = env.tasks.Create(ctx, alice, model.TaskDraft{Name: "  "})
	assert.True(t, errors.Is(err, model.ErrValidation))
	_, err = env.tasks.Create(ctx, alice, model.TaskDraft{Name: "x", Priority: intPtr(4)})
	assert.True(t, errors.Is(err, model.ErrValidation))

	task, err := env.tasks.Create(ctx, alice, model.TaskDraft{Name: "x", Priority: intPtr(1)})
	require.NoError(t, err)
	_, err = env.tasks.Update(ctx, alice, task.ID, model.TaskUpdate{Priority: intPtr(-1)})
	assert.True(t, errors.Is(err, model.ErrValidation))

	updated, err := env.tasks.Update(ctx, alice, task.ID, model.TaskUpdate{Description: strPtr("more")})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Priority, "priority is untouched when not supplied")
	assert.Equal(t, "more", updated.Description)
}

func TestTaskCategoriesInUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, err := env.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	for _, c := range []string{"Work", "Home", "Work"} {
		_, err := env.tasks.Create(ctx, alice, model.TaskDraft{Name: c + " task", Category: c})
		require.NoError(t, err)
	}
	cats, err := env.tasks.CategoriesInUse(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Work"}, cats)
}
