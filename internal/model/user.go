package model

import "time"

// User is a registered account together with its curated categories and tags.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"index" json:"email"`
	PasswordHash   string    `gorm:"column:hashed_password" json:"-"`
	FullName       string    `gorm:"index" json:"full_name"`
	Disabled       bool      `gorm:"default:false" json:"disabled"`
	Categories     LabelList `gorm:"not null" json:"categories"`
	Tags           LabelList `gorm:"not null" json:"tags"`
	TelegramChatID *int64    `gorm:"uniqueIndex" json:"-"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// Active reports whether the account may act on its data.
func (u *User) Active() bool {
	return !u.Disabled
}

// DefaultCategory is given to users who register without categories.
var DefaultCategory = Label{Name: "General", Color: "#5dafb0"}

// UserUpdate is a partial field map for a user; nil fields are left untouched.
type UserUpdate struct {
	Username     *string
	Email        *string
	FullName     *string
	PasswordHash *string
	Categories   *LabelList
	Tags         *LabelList
}

// Columns returns the column assignments for the supplied fields.
func (u UserUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	if u.Username != nil {
		cols["username"] = *u.Username
	}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.FullName != nil {
		cols["full_name"] = *u.FullName
	}
	if u.PasswordHash != nil {
		cols["hashed_password"] = *u.PasswordHash
	}
	if u.Categories != nil {
		cols["categories"] = *u.Categories
	}
	if u.Tags != nil {
		cols["tags"] = *u.Tags
	}
	return cols
}
