package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/okravets/llm-chat-assistant/config"
	"github.com/okravets/llm-chat-assistant/internal/model"
	key_value "github.com/okravets/llm-chat-assistant/internal/storage/key-value"
	"github.com/okravets/llm-chat-assistant/internal/transport/telegram"
	"github.com/okravets/llm-chat-assistant/internal/usecase"
)

func Run(cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	rdb := redis.NewClient(
		&redis.Options{
			Addr: cfg.Storage.RedisEndpoint,
		},
	)

	conversationStorage := key_value.NewConversationStorage(rdb, cfg.Storage.RetainedMessages)
	settingsUsecase := usecase.NewSettingsUsecase(cfg)
	llmUsecase := usecase.NewLLMUsecase(cfg.LLM, logger)

	transport, err := telegram.NewTransport(cfg.Telegram, logger)
	if err != nil {
		return err
	}

	autoReplyUsecase := usecase.NewAutoReplyUsecase(
		usecase.AutoReplyUsecaseDeps{
			Storage:   conversationStorage,
			LLM:       llmUsecase,
			Settings:  settingsUsecase,
			Transport: transport,
			Listener:  &logListener{logger: logger},
			Prompt:    usecase.NewPromptUsecase(),
			Logger:    logger,
		}, cfg.AutoReply,
	)

	transport.Subscribe(autoReplyUsecase.HandleEvent)

	ctx := context.Background()
	autoReplyUsecase.Bootstrap(ctx)

	defer autoReplyUsecase.Wait()
	return transport.Run(ctx)
}

// logListener stands in for the UI notification channel; a desktop or web
// front end would subscribe here instead.
type logListener struct {
	logger *slog.Logger
}

func (l *logListener) OnChatList(chats []model.Chat) {
	l.logger.Debug("chat list updated", "chats", len(chats))
}

func (l *logListener) OnMessage(chatID string, message model.ChatMessage) {
	l.logger.Info(
		"message",
		"chat_id", chatID,
		"from_me", message.FromMe,
		"is_llm_response", message.IsLLMResponse,
	)
}

func (l *logListener) OnNotice(text string) {
	l.logger.Warn("notice", "text", text)
}
