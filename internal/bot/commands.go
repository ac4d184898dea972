package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/model"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	}

	if msg.IsCommand() {
		b.logger.Info("command", "chat", chatID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(chatID); state != nil {
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(chatID, "I did not get that. Send /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "link":
		return b.handleLink(ctx, msg)
	case "unlink":
		return b.handleUnlink(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	name := "there"
	if msg.From != nil && strings.TrimSpace(msg.From.FirstName) != "" {
		name = strings.TrimSpace(msg.From.FirstName)
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your task list at hand.</b>\n\n", escape(name))

	if _, err := b.linkedUser(ctx, msg.Chat.ID); err != nil {
		if !errors.Is(err, errNotLinked) {
			return b.replyFailure(msg.Chat.ID, err)
		}
		text += "First link this chat: request a token from <code>POST /api/v1/token</code> and send <code>/link &lt;token&gt;</code>.\n\n"
	}
	return b.sendText(msg.Chat.ID, text+helpText)
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /newtask: add a task step by step\n" +
	"• /tasks: open tasks with buttons to complete or delete\n" +
	"• /complete &lt;id&gt;: mark a task done, e.g. /complete 3\n" +
	"• /delete &lt;id&gt;: delete a task\n" +
	"• /categories: your categories and the ones in use\n" +
	"• /report: send the digest now\n" +
	"• /link &lt;token&gt;, /unlink: connect or disconnect this chat\n" +
	"• /cancel: abort the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

// handleLink binds the chat to the account the bearer token belongs to.
// The message carrying the token is removed from the chat afterwards.
func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	token := strings.TrimSpace(msg.CommandArguments())
	if token == "" {
		return b.sendText(msg.Chat.ID, "Send <code>/link &lt;token&gt;</code> with a token from the API.")
	}
	user, err := b.deps.Auth.CurrentActiveUser(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrInvalidToken) {
			return b.sendText(msg.Chat.ID, "That token is invalid or expired.")
		}
		return b.replyFailure(msg.Chat.ID, err)
	}
	if err := b.deps.Users.LinkTelegram(ctx, user.ID, msg.Chat.ID); err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.logger.Warn("delete token message", "chat", msg.Chat.ID, "error", err)
	}
	b.logger.Info("chat linked", "chat", msg.Chat.ID, "user", user.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔗 Linked to <b>%s</b>.", escape(user.Username)))
}

func (b *Bot) handleUnlink(ctx context.Context, msg *tgbotapi.Message) error {
	ok, err := b.deps.Users.UnlinkTelegram(ctx, msg.Chat.ID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	b.clearConversation(msg.Chat.ID)
	b.clearConfirmation(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "This chat was not linked.")
	}
	return b.sendText(msg.Chat.ID, "Chat unlinked. Digests will stop.")
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	text, err := b.deps.Reminders.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseTaskArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task ID: /complete 12")
	}
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	task, err := b.deps.Tasks.Complete(ctx, user, taskID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	b.deps.Metrics.TaskCompleted()
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Task «%s» done.", escape(normalizeTitle(task.Name))))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseTaskArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task ID: /delete 12")
	}
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	task, err := b.deps.Tasks.Get(ctx, user, taskID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	if err := b.deps.Tasks.Delete(ctx, user, taskID); err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(normalizeTitle(task.Name))))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	inUse, err := b.deps.Tasks.CategoriesInUse(ctx, user)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatCategories(user.Categories, inUse))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelCategories):
		return true, b.handleCategories(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
