package in_memory

import (
	"context"
	"sync"

	"github.com/okravets/llm-chat-assistant/internal/model"
)

const defaultRetainedMessages = 100

// ConversationStorage is the in-memory twin of the Redis-backed store, used
// in tests and for running without persistence.
type ConversationStorage struct {
	mu            sync.Mutex
	conversations map[string][]model.ChatMessage
	retained      int
}

func NewConversationStorage(retainedMessages int) *ConversationStorage {
	if retainedMessages <= 0 {
		retainedMessages = defaultRetainedMessages
	}
	return &ConversationStorage{
		conversations: make(map[string][]model.ChatMessage),
		retained:      retainedMessages,
	}
}

func (c *ConversationStorage) SaveConversation(
	_ context.Context, chatID string, messages []model.ChatMessage,
) error {
	if len(messages) > c.retained {
		messages = messages[len(messages)-c.retained:]
	}
	saved := make([]model.ChatMessage, len(messages))
	copy(saved, messages)

	c.mu.Lock()
	c.conversations[chatID] = saved
	c.mu.Unlock()
	return nil
}

func (c *ConversationStorage) LoadConversation(
	_ context.Context, chatID string,
) ([]model.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	saved, ok := c.conversations[chatID]
	if !ok {
		return nil, nil
	}
	messages := make([]model.ChatMessage, len(saved))
	copy(messages, saved)
	return messages, nil
}
