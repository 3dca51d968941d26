package in_memory

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okravets/llm-chat-assistant/internal/model"
)

func TestSaveAndLoadConversation(t *testing.T) {
	storage := NewConversationStorage(100)
	ctx := context.Background()

	messages := []model.ChatMessage{
		{ID: "m1", Body: "hello", Timestamp: 1},
		{ID: "m2", Body: "hi", FromMe: true, IsLLMResponse: true, Timestamp: 2},
	}
	require.NoError(t, storage.SaveConversation(ctx, "chat-1", messages))

	loaded, err := storage.LoadConversation(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, messages, loaded)
}

func TestLoadUnknownChatReturnsEmpty(t *testing.T) {
	storage := NewConversationStorage(100)

	loaded, err := storage.LoadConversation(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveKeepsOnlyRetainedWindow(t *testing.T) {
	storage := NewConversationStorage(3)
	ctx := context.Background()

	messages := make([]model.ChatMessage, 0, 10)
	for i := 0; i < 10; i++ {
		messages = append(messages, model.ChatMessage{ID: strconv.Itoa(i), Body: strconv.Itoa(i)})
	}
	require.NoError(t, storage.SaveConversation(ctx, "chat-1", messages))

	loaded, err := storage.LoadConversation(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "7", loaded[0].Body)
	assert.Equal(t, "9", loaded[2].Body)
}

func TestSaveOverwritesPreviousLog(t *testing.T) {
	storage := NewConversationStorage(100)
	ctx := context.Background()

	require.NoError(
		t, storage.SaveConversation(
			ctx, "chat-1", []model.ChatMessage{{ID: "m1", Body: "old"}},
		),
	)
	require.NoError(
		t, storage.SaveConversation(
			ctx, "chat-1", []model.ChatMessage{{ID: "m2", Body: "new"}},
		),
	)

	loaded, err := storage.LoadConversation(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "new", loaded[0].Body)
}

func TestLoadedSliceIsDetachedFromStore(t *testing.T) {
	storage := NewConversationStorage(100)
	ctx := context.Background()

	require.NoError(
		t, storage.SaveConversation(
			ctx, "chat-1", []model.ChatMessage{{ID: "m1", Body: "original"}},
		),
	)

	loaded, err := storage.LoadConversation(ctx, "chat-1")
	require.NoError(t, err)
	loaded[0].Body = "mutated"

	again, err := storage.LoadConversation(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Body)
}
