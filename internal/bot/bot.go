// Package bot is the Telegram front end. A user links their chat with an
// API token and can then list, create, complete and delete tasks and
// receive the periodic digest.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/auth"
	"task-manager/internal/metrics"
	"task-manager/internal/model"
	"task-manager/internal/service"
)

// sender is the part of tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the services the bot works through.
type Deps struct {
	Users     *service.UserService
	Tasks     *service.TaskService
	Reminders *service.ReminderService
	Auth      *auth.Service
	Metrics   *metrics.Metrics
}

// Bot aggregates Telegram API with services.
type Bot struct {
	client *tgbotapi.BotAPI
	api    sender
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
}

var errNotLinked = errors.New("chat is not linked to an account")

func New(token string, deps Deps, logger *slog.Logger) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("bot authorized", "account", client.Self.UserName)

	b := newBot(client, deps, logger)
	b.client = client
	return b, nil
}

func newBot(api sender, deps Deps, logger *slog.Logger) *Bot {
	return &Bot{
		api:           api,
		deps:          deps,
		logger:        logger.With("component", "bot"),
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return errors.New("bot has no telegram client")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}
	return nil
}

// HandleUpdate dispatches one update; errors are logged, not returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Error("handle callback", "error", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error("handle message", "chat", update.Message.Chat.ID, "error", err)
		}
	}
}

// SendDailyReports sends the digest to every linked account.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.deps.Users.Linked(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramChatID == nil {
			continue
		}
		chatID := *user.TelegramChatID
		text, err := b.deps.Reminders.DailySummary(ctx, user, now)
		if err != nil {
			b.logger.Error("build summary", "user", user.ID, "error", err)
			b.deps.Metrics.DigestSent(false)
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			b.logger.Error("send summary", "user", user.ID, "chat", chatID, "error", err)
			b.deps.Metrics.DigestSent(false)
			continue
		}
		b.deps.Metrics.DigestSent(true)
	}
	return nil
}

// linkedUser returns the account bound to chatID, or errNotLinked.
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*model.User, error) {
	user, err := b.deps.Users.ByTelegramChat(ctx, chatID)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, errNotLinked
	}
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, model.ErrInactiveUser
	}
	return user, nil
}

// replyFailure turns a service error into a chat message.
func (b *Bot) replyFailure(chatID int64, err error) error {
	switch {
	case errors.Is(err, errNotLinked):
		return b.sendText(chatID, "This chat is not linked yet. Get a token from the API and send <code>/link &lt;token&gt;</code>.")
	case errors.Is(err, model.ErrInactiveUser):
		return b.sendText(chatID, "Your account is disabled.")
	case errors.Is(err, model.ErrTaskNotFound):
		return b.sendText(chatID, "Task not found.")
	case errors.Is(err, model.ErrValidation):
		var de *model.DomainError
		errors.As(err, &de)
		return b.sendText(chatID, "Invalid input: "+escape(de.Details))
	default:
		b.logger.Error("request failed", "chat", chatID, "error", err)
		return b.sendText(chatID, "Something went wrong, please try again.")
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ack(callbackID string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.logger.Warn("callback ack", "error", err)
	}
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = req
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}
