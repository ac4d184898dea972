package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/model"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID uint
	action confirmationAction
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	b.ack(cb.ID)

	chatID := cb.Message.Chat.ID
	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		taskID, err := parseTaskID(cb.Data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, confirmationRequest{taskID: taskID, action: actionComplete})
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		taskID, err := parseTaskID(cb.Data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, confirmationRequest{taskID: taskID, action: actionDelete})
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, req confirmationRequest) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	task, err := b.deps.Tasks.Get(ctx, user, req.taskID)
	if err != nil {
		return b.replyFailure(chatID, err)
	}

	var text string
	if req.action == actionDelete {
		text = fmt.Sprintf("Delete task «%s» (#%d)?", escape(normalizeTitle(task.Name)), task.ID)
	} else {
		if task.Completed {
			return b.sendText(chatID, "That task is already done.")
		}
		text = fmt.Sprintf("Mark task «%s» (#%d) as done?", escape(normalizeTitle(task.Name)), task.ID)
	}
	b.setConfirmation(chatID, req)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	chatID := msg.Chat.ID
	switch text := msg.Text; {
	case isConfirmInput(text):
		b.clearConfirmation(chatID)
		if req.action == actionDelete {
			return b.deleteTaskAndRefresh(ctx, chatID, req.taskID)
		}
		return b.completeTaskAndRefresh(ctx, chatID, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "🔹 Main menu")
	default:
		prompt := "Confirm or cancel completing the task."
		if req.action == actionDelete {
			prompt = "Confirm or cancel deleting the task."
		}
		return b.sendWithReplyMarkup(chatID, prompt, confirmKeyboard())
	}
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, taskID uint) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	task, err := b.deps.Tasks.Complete(ctx, user, taskID)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	b.deps.Metrics.TaskCompleted()
	b.logger.Info("task completed", "task", task.ID, "user", user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("✅ Task «%s» done.", escape(normalizeTitle(task.Name)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, taskID uint) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	task, err := b.deps.Tasks.Get(ctx, user, taskID)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	if err := b.deps.Tasks.Delete(ctx, user, taskID); err != nil {
		return b.replyFailure(chatID, err)
	}
	b.logger.Info("task deleted", "task", task.ID, "user", user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(normalizeTitle(task.Name)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

// sendTaskList shows open tasks grouped by category with inline buttons.
func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.deps.Tasks.Pending(ctx, user)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No open tasks. Add one with /newtask.")
	}

	now := b.now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Open tasks</b>\n")
	builder.WriteString("Use the buttons to complete or delete a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, group := range groupByCategory(tasks) {
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", categoryLabel(group.name)))
		for _, task := range group.tasks {
			builder.WriteString(formatTaskLine(task, now))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Name, 20)), fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
			))
		}
		builder.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}
