package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// UserRepository handles CRUD for users and their embedded category and tag lists.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user. A taken username yields model.ErrDuplicateUsername.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Categories == nil {
		user.Categories = model.LabelList{}
	}
	if user.Tags == nil {
		user.Tags = model.LabelList{}
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateUsername.WithDetails("%s", user.Username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uint) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("username = ?", username))
}

func (r *UserRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID))
}

func (r *UserRepository) first(q *gorm.DB) (*model.User, error) {
	var user model.User
	err := q.First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrUserNotFound
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListLinked returns active users that linked a Telegram chat.
func (r *UserRepository) ListLinked(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("telegram_chat_id IS NOT NULL AND disabled = ?", false).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list linked users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Update overwrites the supplied fields of user id in one transaction.
func (r *UserRepository) Update(ctx context.Context, id uint, update model.UserUpdate) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, id, &user); err != nil {
			return err
		}
		cols := update.Columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(cols).Error; err != nil {
			if isUniqueViolation(err) && update.Username != nil {
				return model.ErrDuplicateUsername.WithDetails("%s", *update.Username)
			}
			return fmt.Errorf("update user: %w", err)
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes the user and every task they own.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := lockUser(tx, id, &user); err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete user tasks: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// LinkTelegram attaches chatID to the user, detaching it from any other account first.
func (r *UserRepository) LinkTelegram(ctx context.Context, id uint, chatID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := lockUser(tx, id, &user); err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).
			Where("telegram_chat_id = ? AND id <> ?", chatID, id).
			Update("telegram_chat_id", nil).Error; err != nil {
			return fmt.Errorf("unlink previous chat owner: %w", err)
		}
		if err := tx.Model(&user).Update("telegram_chat_id", chatID).Error; err != nil {
			return fmt.Errorf("link telegram: %w", err)
		}
		return nil
	})
}

// UnlinkTelegram detaches chatID; it reports whether an account was linked.
func (r *UserRepository) UnlinkTelegram(ctx context.Context, chatID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("telegram_chat_id = ?", chatID).
		Update("telegram_chat_id", nil)
	if res.Error != nil {
		return false, fmt.Errorf("unlink telegram: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpsertCategory replaces the color of a same-named category in place or appends it.
func (r *UserRepository) UpsertCategory(ctx context.Context, userID uint, category model.Category) (model.Category, error) {
	err := r.mutateLabels(ctx, userID, categoriesOf, func(list *model.LabelList) {
		list.Upsert(category)
	})
	if err != nil {
		return model.Category{}, err
	}
	return category, nil
}

// UpsertTag is UpsertCategory for the tag list.
func (r *UserRepository) UpsertTag(ctx context.Context, userID uint, tag model.Tag) (model.Tag, error) {
	err := r.mutateLabels(ctx, userID, tagsOf, func(list *model.LabelList) {
		list.Upsert(tag)
	})
	if err != nil {
		return model.Tag{}, err
	}
	return tag, nil
}

// DeleteCategory removes categories named name and returns what was removed.
func (r *UserRepository) DeleteCategory(ctx context.Context, userID uint, name string) ([]model.Category, error) {
	var removed []model.Label
	err := r.mutateLabels(ctx, userID, categoriesOf, func(list *model.LabelList) {
		removed = list.Remove(name)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// DeleteTag removes tags named name and returns what was removed.
func (r *UserRepository) DeleteTag(ctx context.Context, userID uint, name string) ([]model.Tag, error) {
	var removed []model.Label
	err := r.mutateLabels(ctx, userID, tagsOf, func(list *model.LabelList) {
		removed = list.Remove(name)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ListCategories returns the user's categories; an absent user has none.
func (r *UserRepository) ListCategories(ctx context.Context, userID uint) ([]model.Category, error) {
	return r.listLabels(ctx, userID, categoriesOf)
}

// ListTags returns the user's tags; an absent user has none.
func (r *UserRepository) ListTags(ctx context.Context, userID uint) ([]model.Tag, error) {
	return r.listLabels(ctx, userID, tagsOf)
}

type labelColumn struct {
	name string
	get  func(*model.User) *model.LabelList
}

var (
	categoriesOf = labelColumn{name: "categories", get: func(u *model.User) *model.LabelList { return &u.Categories }}
	tagsOf       = labelColumn{name: "tags", get: func(u *model.User) *model.LabelList { return &u.Tags }}
)

func (r *UserRepository) mutateLabels(ctx context.Context, userID uint, col labelColumn, fn func(*model.LabelList)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := lockUser(tx, userID, &user); err != nil {
			return err
		}
		list := col.get(&user).Clone()
		fn(&list)
		if err := tx.Model(&user).Update(col.name, list).Error; err != nil {
			return fmt.Errorf("update %s: %w", col.name, err)
		}
		return nil
	})
}

func (r *UserRepository) listLabels(ctx context.Context, userID uint, col labelColumn) ([]model.Label, error) {
	user, err := r.Get(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return []model.Label{}, nil
	}
	if err != nil {
		return nil, err
	}
	list := *col.get(user)
	if list == nil {
		return []model.Label{}, nil
	}
	return []model.Label(list), nil
}

func lockUser(tx *gorm.DB, id uint, user *model.User) error {
	err := tx.Clauses(forUpdate).Where("id = ?", id).First(user).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrUserNotFound
	default:
		return fmt.Errorf("find user: %w", err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
