package service

import (
	"context"
	"errors"
	"strings"

	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// RegisterInput represents data required to create an account.
type RegisterInput struct {
	Username   string        `json:"username"`
	Email      string        `json:"email"`
	FullName   string        `json:"full_name"`
	Password   string        `json:"password"`
	Categories []model.Label `json:"categories"`
	Tags       []model.Label `json:"tags"`
}

// UserPatch is a partial account update. Nil fields stay as they are;
// supplied category and tag lists replace the stored ones.
type UserPatch struct {
	Username   *string        `json:"username"`
	Email      *string        `json:"email"`
	FullName   *string        `json:"full_name"`
	Password   *string        `json:"password"`
	Categories *[]model.Label `json:"categories"`
	Tags       *[]model.Label `json:"tags"`
}

// UserService wraps account business logic.
type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Register validates input, hashes the password and stores the account.
// Users registering without categories get model.DefaultCategory.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, model.ErrValidation.WithDetails("username is required")
	}
	if input.Password == "" {
		return nil, model.ErrValidation.WithDetails("password is required")
	}

	categories := model.LabelList{model.DefaultCategory}
	if input.Categories != nil {
		list, err := model.NewLabelList(input.Categories)
		if err != nil {
			return nil, err
		}
		categories = list
	}
	tags, err := model.NewLabelList(input.Tags)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		Categories:   categories,
		Tags:         tags,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	return s.users.Get(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// Update applies patch to the account id.
func (s *UserService) Update(ctx context.Context, id uint, patch UserPatch) (*model.User, error) {
	var update model.UserUpdate
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, model.ErrValidation.WithDetails("username cannot be empty")
		}
		if err := s.ensureUsernameFree(ctx, username, id); err != nil {
			return nil, err
		}
		update.Username = &username
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		update.Email = &email
	}
	if patch.FullName != nil {
		name := strings.TrimSpace(*patch.FullName)
		update.FullName = &name
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, model.ErrValidation.WithDetails("password cannot be empty")
		}
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &hash
	}
	if patch.Categories != nil {
		list, err := model.NewLabelList(*patch.Categories)
		if err != nil {
			return nil, err
		}
		update.Categories = &list
	}
	if patch.Tags != nil {
		list, err := model.NewLabelList(*patch.Tags)
		if err != nil {
			return nil, err
		}
		update.Tags = &list
	}
	return s.users.Update(ctx, id, update)
}

// Delete removes the account and all of its tasks.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.users.Delete(ctx, id)
}

func (s *UserService) UpsertCategory(ctx context.Context, userID uint, category model.Category) (model.Category, error) {
	label, err := model.NormalizeLabel(category)
	if err != nil {
		return model.Category{}, err
	}
	return s.users.UpsertCategory(ctx, userID, label)
}

func (s *UserService) DeleteCategory(ctx context.Context, userID uint, name string) ([]model.Category, error) {
	return s.users.DeleteCategory(ctx, userID, strings.TrimSpace(name))
}

func (s *UserService) ListCategories(ctx context.Context, userID uint) ([]model.Category, error) {
	return s.users.ListCategories(ctx, userID)
}

func (s *UserService) UpsertTag(ctx context.Context, userID uint, tag model.Tag) (model.Tag, error) {
	label, err := model.NormalizeLabel(tag)
	if err != nil {
		return model.Tag{}, err
	}
	return s.users.UpsertTag(ctx, userID, label)
}

func (s *UserService) DeleteTag(ctx context.Context, userID uint, name string) ([]model.Tag, error) {
	return s.users.DeleteTag(ctx, userID, strings.TrimSpace(name))
}

func (s *UserService) ListTags(ctx context.Context, userID uint) ([]model.Tag, error) {
	return s.users.ListTags(ctx, userID)
}

// LinkTelegram binds a Telegram chat to the account so digests reach it.
func (s *UserService) LinkTelegram(ctx context.Context, userID uint, chatID int64) error {
	return s.users.LinkTelegram(ctx, userID, chatID)
}

// UnlinkTelegram reports whether chatID was bound to an account.
func (s *UserService) UnlinkTelegram(ctx context.Context, chatID int64) (bool, error) {
	return s.users.UnlinkTelegram(ctx, chatID)
}

// ByTelegramChat returns the account bound to chatID.
func (s *UserService) ByTelegramChat(ctx context.Context, chatID int64) (*model.User, error) {
	return s.users.GetByTelegramChat(ctx, chatID)
}

// Linked returns active accounts with a Telegram chat.
func (s *UserService) Linked(ctx context.Context) ([]model.User, error) {
	return s.users.ListLinked(ctx)
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, self uint) error {
	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == self:
		return nil
	default:
		return model.ErrDuplicateUsername.WithDetails("%s", username)
	}
}
