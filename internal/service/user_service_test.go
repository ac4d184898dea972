package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/auth"
	"task-manager/internal/model"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{Username: " alice ", Password: "pw", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, model.LabelList{model.DefaultCategory}, user.Categories)
	assert.Empty(t, user.Tags)
	assert.NotEqual(t, "pw", user.PasswordHash)
	assert.True(t, auth.VerifyPassword("pw", user.PasswordHash))

	_, err = env.users.Register(ctx, RegisterInput{Username: "alice", Password: "other"})
	assert.True(t, errors.Is(err, model.ErrDuplicateUsername))
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"empty username", RegisterInput{Username: " ", Password: "pw"}},
		{"empty password", RegisterInput{Username: "bob"}},
		{"duplicate categories", RegisterInput{Username: "bob", Password: "pw", Categories: []model.Label{{Name: "A"}, {Name: "A"}}}},
		{"blank tag", RegisterInput{Username: "bob", Password: "pw", Tags: []model.Label{{Name: "  "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.Register(ctx, tt.input)
			assert.True(t, errors.Is(err, model.ErrValidation), "got %v", err)
		})
	}

	user, err := env.users.Register(ctx, RegisterInput{Username: "bob", Password: "pw", Categories: []model.Label{}})
	require.NoError(t, err)
	assert.Empty(t, user.Categories, "explicit empty list is kept")
}

func TestUserUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, err := env.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw", FullName: "Alice"})
	require.NoError(t, err)
	_, err = env.users.Register(ctx, RegisterInput{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	_, err = env.users.Update(ctx, alice.ID, UserPatch{Username: strPtr("bob")})
	assert.True(t, errors.Is(err, model.ErrDuplicateUsername))

	same, err := env.users.Update(ctx, alice.ID, UserPatch{Username: strPtr("alice")})
	require.NoError(t, err)
	assert.Equal(t, "alice", same.Username)

	tags := []model.Label{{Name: "x", Color: "#111111"}}
	updated, err := env.users.Update(ctx, alice.ID, UserPatch{Email: strPtr("new@example.com"), Password: strPtr("next"), Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "Alice", updated.FullName)
	assert.Equal(t, model.LabelList{{Name: "x", Color: "#111111"}}, updated.Tags)
	assert.True(t, auth.VerifyPassword("next", updated.PasswordHash))

	_, err = env.users.Update(ctx, alice.ID, UserPatch{Password: strPtr("")})
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = env.users.Update(ctx, 999, UserPatch{Email: strPtr("x")})
	assert.True(t, errors.Is(err, model.ErrUserNotFound))
}

func TestUserLabels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, err := env.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	_, err = env.users.UpsertCategory(ctx, alice.ID, model.Category{Name: "Work", Color: "#FF0000"})
	require.NoError(t, err)
	got, err := env.users.UpsertCategory(ctx, alice.ID, model.Category{Name: " Work ", Color: "#00FF00"})
	require.NoError(t, err)
	assert.Equal(t, model.Category{Name: "Work", Color: "#00FF00"}, got)

	cats, err := env.users.ListCategories(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{model.DefaultCategory, {Name: "Work", Color: "#00FF00"}}, cats)

	_, err = env.users.UpsertTag(ctx, alice.ID, model.Tag{Name: ""})
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = env.users.UpsertTag(ctx, alice.ID, model.Tag{Name: "urgent", Color: "#f00"})
	require.NoError(t, err)
	removed, err := env.users.DeleteTag(ctx, alice.ID, "urgent")
	require.NoError(t, err)
	assert.Equal(t, []model.Tag{{Name: "urgent", Color: "#f00"}}, removed)

	tags, err := env.users.ListTags(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)

	removed, err = env.users.DeleteCategory(ctx, alice.ID, "missing")
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestUserTelegramLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, err := env.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, env.users.LinkTelegram(ctx, alice.ID, 42))
	found, err := env.users.ByTelegramChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	linked, err := env.users.Linked(ctx)
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	ok, err := env.users.UnlinkTelegram(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = env.users.ByTelegramChat(ctx, 42)
	assert.True(t, errors.Is(err, model.ErrUserNotFound))
}
