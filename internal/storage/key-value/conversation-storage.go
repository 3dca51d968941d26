package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okravets/llm-chat-assistant/internal/model"
)

const defaultRetainedMessages = 100

type messageInternal struct {
	ID            string `json:"id"`
	Body          string `json:"body"`
	FromMe        bool   `json:"from_me"`
	Timestamp     int64  `json:"timestamp"`
	Author        string `json:"author,omitempty"`
	IsLLMResponse bool   `json:"is_llm_response"`
}

// ConversationStorage keeps each chat's message log as a JSON blob in Redis.
// Every save overwrites the blob with the most recent window; the retention
// cap is a storage limit, independent of the prompt-construction bound.
type ConversationStorage struct {
	rdb      *redis.Client
	retained int
}

func NewConversationStorage(rdb *redis.Client, retainedMessages int) *ConversationStorage {
	if retainedMessages <= 0 {
		retainedMessages = defaultRetainedMessages
	}
	return &ConversationStorage{
		rdb:      rdb,
		retained: retainedMessages,
	}
}

func (c *ConversationStorage) SaveConversation(
	ctx context.Context, chatID string, messages []model.ChatMessage,
) error {
	if len(messages) > c.retained {
		messages = messages[len(messages)-c.retained:]
	}
	messagesInt := make([]messageInternal, 0, len(messages))
	for _, msg := range messages {
		messagesInt = append(
			messagesInt, messageInternal{
				ID:            msg.ID,
				Body:          msg.Body,
				FromMe:        msg.FromMe,
				Timestamp:     msg.Timestamp,
				Author:        msg.Author,
				IsLLMResponse: msg.IsLLMResponse,
			},
		)
	}
	messagesJSON, err := json.Marshal(messagesInt)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation %s: %w", chatID, err)
	}
	if err = c.rdb.Set(ctx, getConversationKey(chatID), messagesJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", chatID, err)
	}
	return nil
}

func (c *ConversationStorage) LoadConversation(
	ctx context.Context, chatID string,
) ([]model.ChatMessage, error) {
	raw, err := c.rdb.Get(ctx, getConversationKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation %s: %w", chatID, err)
	}
	var messagesInt []messageInternal
	if err = json.Unmarshal([]byte(raw), &messagesInt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation %s: %w", chatID, err)
	}
	messages := make([]model.ChatMessage, 0, len(messagesInt))
	for _, msg := range messagesInt {
		messages = append(
			messages, model.ChatMessage{
				ID:            msg.ID,
				Body:          msg.Body,
				FromMe:        msg.FromMe,
				Timestamp:     msg.Timestamp,
				Author:        msg.Author,
				IsLLMResponse: msg.IsLLMResponse,
			},
		)
	}
	return messages, nil
}

func getConversationKey(chatID string) string {
	return fmt.Sprintf("conversation_%s", chatID)
}
