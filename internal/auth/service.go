package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"task-manager/internal/model"
)

// UserLookup finds accounts by username and by ID.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Get(ctx context.Context, id uint) (*model.User, error)
}

// Service authenticates users and resolves bearer tokens to accounts.
type Service struct {
	users  UserLookup
	tokens *Tokens
}

func NewService(users UserLookup, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens}
}

// Authenticate checks username and password. Unknown users and wrong
// passwords both yield model.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a token for the user.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.issueFor(user)
}

// Refresh issues a new token for an already authenticated user.
func (s *Service) Refresh(user *model.User) (string, time.Time, error) {
	return s.issueFor(user)
}

// issueFor uses the immutable user ID as subject; usernames can change hands.
func (s *Service) issueFor(user *model.User) (string, time.Time, error) {
	return s.tokens.Issue(strconv.FormatUint(uint64(user.ID), 10))
}

// CurrentUser resolves token to its account. A token for a deleted
// account is model.ErrInvalidToken.
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	subject, err := s.tokens.Resolve(token)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || id == 0 {
		return nil, model.ErrInvalidToken
	}
	user, err := s.users.Get(ctx, uint(id))
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CurrentActiveUser is CurrentUser that also rejects disabled accounts.
func (s *Service) CurrentActiveUser(ctx context.Context, token string) (*model.User, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, model.ErrInactiveUser
	}
	return user, nil
}
