package usecase

import (
	"github.com/okravets/llm-chat-assistant/internal/model"
)

const defaultMaxHistoryLength = 10

// PromptUsecase turns a chat's growing message log into a bounded prompt.
// The bound counts conversation messages; the system instruction is always
// retained on top of it.
type PromptUsecase struct{}

func NewPromptUsecase() *PromptUsecase {
	return &PromptUsecase{}
}

// BuildPrompt produces [system] + the last MaxHistoryLength turns of the
// chat. A chat with no messages still yields the system entry alone.
func (p *PromptUsecase) BuildPrompt(chat model.Chat, settings model.LLMSettings) []model.PromptMessage {
	maxHistory := settings.MaxHistoryLength
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistoryLength
	}

	messages := make([]model.PromptMessage, 0, len(chat.Messages)+1)
	messages = append(
		messages, model.PromptMessage{
			Role:    model.RoleSystem,
			Content: settings.SystemPrompt,
		},
	)
	for _, msg := range chat.Messages {
		messages = append(
			messages, model.PromptMessage{
				Role:    parseMessageRole(msg),
				Content: msg.Body,
			},
		)
	}
	return p.Trim(messages, maxHistory+1)
}

// Trim returns at most maxLength entries. The first system message is never
// evicted; the rest is cut from the front, oldest first. Trim does not
// mutate its input and is idempotent.
func (p *PromptUsecase) Trim(messages []model.PromptMessage, maxLength int) []model.PromptMessage {
	if maxLength <= 0 {
		return nil
	}

	var system *model.PromptMessage
	history := make([]model.PromptMessage, 0, len(messages))
	for i := range messages {
		if messages[i].Role == model.RoleSystem {
			if system == nil {
				system = &messages[i]
			}
			continue
		}
		history = append(history, messages[i])
	}

	if system == nil {
		if len(history) > maxLength {
			history = history[len(history)-maxLength:]
		}
		return history
	}

	keep := maxLength - 1
	if keep > len(history) {
		keep = len(history)
	}
	trimmed := make([]model.PromptMessage, 0, keep+1)
	trimmed = append(trimmed, *system)
	trimmed = append(trimmed, history[len(history)-keep:]...)
	return trimmed
}

func parseMessageRole(msg model.ChatMessage) model.Role {
	if msg.FromMe {
		return model.RoleAssistant
	}
	return model.RoleUser
}
