package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	// DefaultTaskCategory is the label given to tasks created without one.
	DefaultTaskCategory = "General"
	MinPriority         = 0
	MaxPriority         = 3
)

// Task is a single to-do item owned by one user.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OwnerID     uint       `gorm:"index;not null" json:"owner_id"`
	Owner       *User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Name        string     `gorm:"index;not null" json:"name"`
	Description string     `json:"description"`
	Category    string     `gorm:"index" json:"category"`
	DueDate     *time.Time `gorm:"column:due_date" json:"dueDate"`
	Parameters  Params     `gorm:"not null" json:"parameters"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	Tags        StringList `gorm:"not null" json:"tags"`
	Priority    int        `gorm:"default:0" json:"priority"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// TaskDraft is caller-supplied data for a new task, before defaults.
type TaskDraft struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	DueDate     *time.Time     `json:"dueDate"`
	Parameters  map[string]any `json:"parameters"`
	Completed   bool           `json:"completed"`
	Tags        []string       `json:"tags"`
	Priority    *int           `json:"priority"`
}

// Normalize trims strings, applies defaults and validates the draft.
func (d TaskDraft) Normalize() (TaskDraft, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, validationError("task name cannot be empty")
	}
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	if d.Category == "" {
		d.Category = DefaultTaskCategory
	}
	if d.Parameters == nil {
		d.Parameters = map[string]any{}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Priority == nil {
		p := MinPriority
		d.Priority = &p
	}
	if err := checkPriority(*d.Priority); err != nil {
		return d, err
	}
	return d, nil
}

// Task builds the record for ownerID. The draft must be normalized.
func (d TaskDraft) Task(ownerID uint) *Task {
	priority := MinPriority
	if d.Priority != nil {
		priority = *d.Priority
	}
	return &Task{
		OwnerID:     ownerID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		DueDate:     d.DueDate,
		Parameters:  Params(d.Parameters),
		Completed:   d.Completed,
		Tags:        StringList(d.Tags),
		Priority:    priority,
	}
}

// TaskUpdate is a partial field map for a task; nil fields are left untouched.
type TaskUpdate struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	DueDate     *time.Time      `json:"dueDate"`
	Parameters  *map[string]any `json:"parameters"`
	Completed   *bool           `json:"completed"`
	Tags        *[]string       `json:"tags"`
	Priority    *int            `json:"priority"`
}

// Normalize trims supplied strings and validates supplied fields.
func (u TaskUpdate) Normalize() (TaskUpdate, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return u, validationError("task name cannot be empty")
		}
		u.Name = &name
	}
	if u.Description != nil {
		desc := strings.TrimSpace(*u.Description)
		u.Description = &desc
	}
	if u.Category != nil {
		cat := strings.TrimSpace(*u.Category)
		if cat == "" {
			cat = DefaultTaskCategory
		}
		u.Category = &cat
	}
	if u.Priority != nil {
		if err := checkPriority(*u.Priority); err != nil {
			return u, err
		}
	}
	return u, nil
}

// Empty reports whether no field was supplied.
func (u TaskUpdate) Empty() bool {
	return len(u.Columns()) == 0
}

// Columns returns the column assignments for the supplied fields.
func (u TaskUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Category != nil {
		cols["category"] = *u.Category
	}
	if u.DueDate != nil {
		cols["due_date"] = *u.DueDate
	}
	if u.Parameters != nil {
		cols["parameters"] = Params(*u.Parameters)
	}
	if u.Completed != nil {
		cols["completed"] = *u.Completed
	}
	if u.Tags != nil {
		cols["tags"] = StringList(*u.Tags)
	}
	if u.Priority != nil {
		cols["priority"] = *u.Priority
	}
	return cols
}

func checkPriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return validationError("priority must be in the interval [%d,%d]", MinPriority, MaxPriority)
	}
	return nil
}

// Params is the free-form parameter map of a task, stored as JSON.
type Params map[string]any

func (p *Params) Scan(value any) error {
	*p = Params{}
	raw, err := jsonBytes(value)
	if err != nil || len(raw) == 0 {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decode parameters: %w", err)
	}
	if m != nil {
		*p = m
	}
	return nil
}

func (p Params) Value() (driver.Value, error) {
	return jsonValue(map[string]any(p), "{}")
}

func (Params) GormDataType() string {
	return "json"
}

func (Params) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func (p Params) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}

// StringList is a list of free-text tags stored as JSON.
type StringList []string

func (s *StringList) Scan(value any) error {
	*s = StringList{}
	raw, err := jsonBytes(value)
	if err != nil || len(raw) == 0 {
		return err
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	if items != nil {
		*s = items
	}
	return nil
}

func (s StringList) Value() (driver.Value, error) {
	return jsonValue([]string(s), "[]")
}

func (StringList) GormDataType() string {
	return "json"
}

func (StringList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}
