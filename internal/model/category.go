package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Label is a named color used for both user categories and user tags.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Category and Tag share a shape but live in separate lists on the user.
type (
	Category = Label
	Tag      = Label
)

// NormalizeLabel trims the name and rejects empty names.
func NormalizeLabel(l Label) (Label, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return l, validationError("name cannot be empty")
	}
	return l, nil
}

// LabelList is an insertion-ordered collection of labels keyed by exact name.
// The zero value is an empty list.
type LabelList []Label

// NewLabelList validates labels and returns them as a list.
// Names are trimmed; an empty or repeated name is a validation error.
func NewLabelList(labels []Label) (LabelList, error) {
	list := make(LabelList, 0, len(labels))
	for _, l := range labels {
		norm, err := NormalizeLabel(l)
		if err != nil {
			return nil, err
		}
		if list.Index(norm.Name) >= 0 {
			return nil, validationError("duplicate name %q", norm.Name)
		}
		list = append(list, norm)
	}
	return list, nil
}

// Index returns the position of name, or -1.
func (l LabelList) Index(name string) int {
	for i, label := range l {
		if label.Name == name {
			return i
		}
	}
	return -1
}

// Find returns the label with the given name.
func (l LabelList) Find(name string) (Label, bool) {
	if i := l.Index(name); i >= 0 {
		return l[i], true
	}
	return Label{}, false
}

// Upsert replaces the color of an existing label in place or appends a new one.
// It reports whether an existing label was replaced.
func (l *LabelList) Upsert(label Label) bool {
	if i := l.Index(label.Name); i >= 0 {
		(*l)[i] = label
		return true
	}
	*l = append(*l, label)
	return false
}

// Remove drops every label named name and returns the removed entries.
// The result is empty, not nil, when nothing matched.
func (l *LabelList) Remove(name string) []Label {
	removed := make([]Label, 0, 1)
	kept := make(LabelList, 0, len(*l))
	for _, label := range *l {
		if label.Name == name {
			removed = append(removed, label)
			continue
		}
		kept = append(kept, label)
	}
	*l = kept
	return removed
}

// Clone returns a copy that does not share storage with l.
func (l LabelList) Clone() LabelList {
	out := make(LabelList, len(l))
	copy(out, l)
	return out
}

// Scan implements sql.Scanner.
func (l *LabelList) Scan(value any) error {
	*l = LabelList{}
	raw, err := jsonBytes(value)
	if err != nil || len(raw) == 0 {
		return err
	}
	var labels []Label
	if err := json.Unmarshal(raw, &labels); err != nil {
		return fmt.Errorf("decode labels: %w", err)
	}
	if labels != nil {
		*l = labels
	}
	return nil
}

// Value implements driver.Valuer. A nil list is stored as [].
func (l LabelList) Value() (driver.Value, error) {
	return jsonValue([]Label(l), "[]")
}

func (LabelList) GormDataType() string {
	return "json"
}

func (LabelList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// MarshalJSON keeps an empty list as [] on the wire.
func (l LabelList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Label(l))
}

func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T into json column", value)
	}
}

func jsonValue(v any, empty string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func jsonColumnType(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

