package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	"task-manager/internal/model"
)

var dueLayouts = []string{"2006-01-02", "2006-01-02 15:04", "02.01.2006"}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func parseTaskID(data, prefix string) (uint, error) {
	return parseTaskArg(strings.TrimPrefix(data, prefix))
}

// parseTaskArg reads a positive task ID, tolerating a leading '#'.
func parseTaskArg(raw string) (uint, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("task id must be positive")
	}
	return uint(value), nil
}

// parseDue accepts a date or a date with time; results are in UTC.
func parseDue(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", text)
}

func parsePriority(text string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	if p < model.MinPriority || p > model.MaxPriority {
		return 0, fmt.Errorf("priority %d out of range", p)
	}
	return p, nil
}

func matchesAny(text string, options ...string) bool {
	value := strings.ToLower(strings.TrimSpace(text))
	for _, opt := range options {
		if value == strings.ToLower(opt) {
			return true
		}
	}
	return false
}

func isSkipInput(text string) bool {
	return matchesAny(text, "-", btnSkip, "skip")
}

func isConfirmInput(text string) bool {
	return matchesAny(text, btnConfirm, "confirm", "yes")
}

func isCancelInput(text string) bool {
	return matchesAny(text, btnCancel, "cancel", "no")
}

func isCancelDialogInput(text string) bool {
	return matchesAny(text, btnCancelDialog, "cancel input")
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	icon := "🏷️"
	switch strings.ToLower(base) {
	case "work":
		icon = "💼"
	case "home":
		icon = "🏠"
	case "study":
		icon = "🎓"
	case "shopping":
		icon = "🛒"
	case "health":
		icon = "🩺"
	case strings.ToLower(model.DefaultTaskCategory):
		icon = "📁"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

// formatCategories lists the configured categories and marks the ones tasks use.
func formatCategories(categories model.LabelList, inUse []string) string {
	used := make(map[string]bool, len(inUse))
	for _, name := range inUse {
		used[name] = true
	}

	var sb strings.Builder
	sb.WriteString("📂 <b>Your categories</b>\n")
	if len(categories) == 0 {
		sb.WriteString("- none yet\n")
	}
	for _, c := range categories {
		line := "• " + categoryLabel(c.Name)
		if c.Color != "" {
			line += fmt.Sprintf(" <code>%s</code>", escape(c.Color))
		}
		if used[c.Name] {
			line += " ✔"
		}
		sb.WriteString(line + "\n")
	}

	var extra []string
	for _, name := range inUse {
		if categories.Index(name) < 0 {
			extra = append(extra, categoryLabel(name))
		}
	}
	if len(extra) > 0 {
		sb.WriteString("\n<b>Also used by tasks</b>\n")
		for _, label := range extra {
			sb.WriteString("• " + label + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

func formatTaskLine(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := "🟢"
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			icon = "⚠️"
		} else if d.Sub(now) <= 48*time.Hour {
			icon = "⏳"
		}
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID, escape(normalizeTitle(task.Name))))
	if task.Priority > model.MinPriority {
		b.WriteString(" " + strings.Repeat("❗", task.Priority))
	}
	b.WriteByte('\n')
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			b.WriteString(fmt.Sprintf("   ⏰ %s, <b>overdue</b>\n", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			b.WriteString(fmt.Sprintf("   ⏰ %s, ≈%d day(s) left\n", d.Format("2006-01-02"), daysLeft))
		}
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	return b.String()
}

func formatSaved(task *model.Task) string {
	text := fmt.Sprintf("✅ Saved task <b>#%d</b> «%s» in %s.", task.ID, escape(normalizeTitle(task.Name)), categoryLabel(task.Category))
	if task.DueDate != nil {
		text += "\n⏰ Due " + task.DueDate.Format("2006-01-02")
	}
	return text
}

type categoryGroup struct {
	name  string
	tasks []model.Task
}

// groupByCategory keeps the order in which categories first appear.
func groupByCategory(tasks []model.Task) []categoryGroup {
	var groups []categoryGroup
	index := make(map[string]int)
	for _, task := range tasks {
		name := strings.TrimSpace(task.Category)
		if name == "" {
			name = model.DefaultTaskCategory
		}
		key := strings.ToLower(name)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, categoryGroup{name: name})
		}
		groups[i].tasks = append(groups[i].tasks, task)
	}
	return groups
}
