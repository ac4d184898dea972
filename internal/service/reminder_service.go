package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// ReminderService builds human-readable summaries for digest notifications.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

// DailySummary renders the user's pending tasks as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	pending, err := s.taskRepo.ListPending(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return renderSummary(user, pending, now), nil
}

func renderSummary(user model.User, pending []model.Task, now time.Time) string {
	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>")
	if user.FullName != "" {
		builder.WriteString(" for " + html.EscapeString(user.FullName))
	}
	builder.WriteString(fmt.Sprintf("\n🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("- nothing open\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, now))
		}
	}
	return strings.TrimSpace(builder.String())
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s #%d %s", icon, task.ID, html.EscapeString(strings.TrimSpace(task.Name))))
	if task.Priority > model.MinPriority {
		sb.WriteString(" " + strings.Repeat("❗", task.Priority))
	}
	if name := strings.TrimSpace(task.Category); name != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
	}

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, ≈%d day(s) left", d.Format("2006-01-02"), daysLeft))
		}
	}

	if desc := strings.TrimSpace(task.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(desc)))
	}
	if len(task.Tags) > 0 {
		sb.WriteString("\n   🏷 " + html.EscapeString(strings.Join(task.Tags, ", ")))
	}

	sb.WriteByte('\n')
	return sb.String()
}
