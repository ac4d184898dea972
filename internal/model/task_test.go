package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestTaskDraftNormalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		d, err := TaskDraft{Name: "  Ship it  "}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "Ship it", d.Name)
		assert.Equal(t, "", d.Description)
		assert.Equal(t, DefaultTaskCategory, d.Category)
		assert.Equal(t, map[string]any{}, d.Parameters)
		assert.Equal(t, []string{}, d.Tags)
		require.NotNil(t, d.Priority)
		assert.Equal(t, 0, *d.Priority)
		assert.False(t, d.Completed)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := TaskDraft{Name: " \t"}.Normalize()
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("priority bounds", func(t *testing.T) {
		for _, p := range []int{0, 1, 2, 3} {
			_, err := TaskDraft{Name: "x", Priority: intPtr(p)}.Normalize()
			assert.NoError(t, err, "priority %d", p)
		}
		for _, p := range []int{-1, 4} {
			_, err := TaskDraft{Name: "x", Priority: intPtr(p)}.Normalize()
			assert.True(t, errors.Is(err, ErrValidation), "priority %d", p)
		}
	})

	t.Run("builds task", func(t *testing.T) {
		d, err := TaskDraft{Name: "Ship it", Priority: intPtr(2), Tags: []string{"a"}}.Normalize()
		require.NoError(t, err)
		task := d.Task(7)
		assert.Equal(t, uint(7), task.OwnerID)
		assert.Equal(t, 2, task.Priority)
		assert.Equal(t, StringList{"a"}, task.Tags)
	})
}

func TestTaskUpdate(t *testing.T) {
	t.Run("only supplied fields", func(t *testing.T) {
		u, err := TaskUpdate{Name: strPtr(" New "), Priority: intPtr(3)}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "New", "priority": 3}, u.Columns())
		assert.False(t, u.Empty())
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, TaskUpdate{}.Empty())
	})

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := TaskUpdate{Name: strPtr("  ")}.Normalize()
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("priority out of range", func(t *testing.T) {
		_, err := TaskUpdate{Priority: intPtr(9)}.Normalize()
		assert.True(t, errors.Is(err, ErrValidation))
	})
}

func TestDomainErrors(t *testing.T) {
	err := ErrTaskNotFound.WithDetails("id %d", 4)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
	assert.False(t, errors.Is(err, ErrUserNotFound))
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(ErrUserNotFound))
	assert.False(t, IsNotFound(ErrDuplicateUsername))
	assert.Equal(t, "[TASK-4040] task not found: id 4", err.Error())

	cause := errors.New("boom")
	wrapped := ErrValidation.Wrap(cause)
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, "ARG-4000", ErrorCode(wrapped))
}
