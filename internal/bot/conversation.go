package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/model"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageDescription
	stageCategory
	stageDue
	stagePriority
	stageDone
)

type conversationState struct {
	stage      conversationStage
	draft      model.TaskDraft
	categories []string
}

// advance feeds one answer into the state and returns the next prompt.
// A non-empty problem means the answer was rejected and the stage kept.
func (s *conversationState) advance(text string) (prompt string, problem string) {
	text = strings.TrimSpace(text)
	switch s.stage {
	case stageName:
		if text == "" {
			return "", "The name cannot be empty. How should the task be called?"
		}
		s.draft.Name = text
		s.stage = stageDescription
		return "✏️ Add a short description (or press Skip).", ""
	case stageDescription:
		if !isSkipInput(text) {
			s.draft.Description = text
		}
		s.stage = stageCategory
		return "🏷 Pick a category or type your own (Skip for General).", ""
	case stageCategory:
		if !isSkipInput(text) {
			s.draft.Category = text
		}
		s.stage = stageDue
		return "⏰ Due date as <code>2026-11-30</code> (or Skip).", ""
	case stageDue:
		if !isSkipInput(text) {
			due, err := parseDue(text)
			if err != nil {
				return "", "I cannot read that date. Use <code>2026-11-30</code> or Skip."
			}
			s.draft.DueDate = &due
		}
		s.stage = stagePriority
		return fmt.Sprintf("❗ Priority from %d to %d (or Skip for %d).", model.MinPriority, model.MaxPriority, model.MinPriority), ""
	case stagePriority:
		if !isSkipInput(text) {
			p, err := parsePriority(text)
			if err != nil {
				return "", fmt.Sprintf("Priority must be a number from %d to %d.", model.MinPriority, model.MaxPriority)
			}
			s.draft.Priority = &p
		}
		s.stage = stageDone
		return "", ""
	default:
		s.stage = stageDone
		return "", ""
	}
}

func (s *conversationState) keyboard() any {
	switch s.stage {
	case stageName:
		return cancelKeyboard()
	case stageCategory:
		return categoryKeyboard(s.categories)
	case stagePriority:
		return priorityKeyboard()
	default:
		return skipKeyboard()
	}
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return b.replyFailure(msg.Chat.ID, err)
	}
	names := make([]string, 0, len(user.Categories))
	for _, c := range user.Categories {
		names = append(names, c.Name)
	}
	state := &conversationState{stage: stageName, categories: names}
	b.setConversation(msg.Chat.ID, state)
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what is it called?", state.keyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	prompt, problem := state.advance(msg.Text)
	if problem != "" {
		return b.sendWithReplyMarkup(msg.Chat.ID, problem, state.keyboard())
	}
	if state.stage != stageDone {
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, state.keyboard())
	}
	b.clearConversation(msg.Chat.ID)
	return b.finishTaskCreation(ctx, msg.Chat.ID, state.draft)
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, draft model.TaskDraft) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	task, err := b.deps.Tasks.Create(ctx, user, draft)
	if err != nil {
		return b.replyFailure(chatID, err)
	}
	b.deps.Metrics.TaskCreated()
	b.logger.Info("task created", "task", task.ID, "user", user.ID)

	if err := b.sendWithReplyMarkup(chatID, formatSaved(task), tgbotapi.NewRemoveKeyboard(true)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}
