package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/model"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if u, ok := f[username]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

func (f fakeUsers) Get(_ context.Context, id uint) (*model.User, error) {
	for _, u := range f {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func newTestService(t *testing.T) (*Service, fakeUsers) {
	t.Helper()
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	users := fakeUsers{
		"alice": {ID: 1, Username: "alice", PasswordHash: hash},
		"carol": {ID: 2, Username: "carol", PasswordHash: hash, Disabled: true},
	}
	return NewService(users, NewTokens("key", time.Hour, "task-manager")), users
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.True(t, errors.Is(err, model.ErrInvalidCredentials))

	_, err = svc.Authenticate(ctx, "nobody", "secret")
	assert.True(t, errors.Is(err, model.ErrInvalidCredentials))
}

func TestCurrentUser(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	user, err := svc.CurrentActiveUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	refreshed, _, err := svc.Refresh(user)
	require.NoError(t, err)
	_, err = svc.CurrentUser(ctx, refreshed)
	assert.NoError(t, err)

	delete(users, "alice")
	_, err = svc.CurrentUser(ctx, token)
	assert.True(t, errors.Is(err, model.ErrInvalidToken))

	_, err = svc.CurrentUser(ctx, "garbage")
	assert.True(t, errors.Is(err, model.ErrInvalidToken))
}

func TestCurrentActiveUserDisabled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "carol", "secret")
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.Disabled)

	_, err = svc.CurrentActiveUser(ctx, token)
	assert.True(t, errors.Is(err, model.ErrInactiveUser))
}

func TestTokenSurvivesRenameAndIgnoresNewOwner(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	// alice renames herself and someone else takes the old name
	alice := users["alice"]
	delete(users, "alice")
	alice.Username = "alice2"
	users["alice2"] = alice
	users["alice"] = &model.User{ID: 3, Username: "alice"}

	user, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	assert.Equal(t, "alice2", user.Username)
}

func TestCurrentUserRejectsNonNumericSubject(t *testing.T) {
	svc, _ := newTestService(t)
	token, _, err := svc.tokens.Issue("alice")
	require.NoError(t, err)

	_, err = svc.CurrentUser(context.Background(), token)
	assert.True(t, errors.Is(err, model.ErrInvalidToken))
}
