package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/okravets/llm-chat-assistant/config"
	"github.com/okravets/llm-chat-assistant/internal/model"
	"github.com/okravets/llm-chat-assistant/internal/usecase"
)

const updateTimeoutSeconds = 60

// Handler consumes one transport event.
type Handler func(ctx context.Context, event usecase.ChatEvent)

// Transport binds the engine's chat transport contract to the Telegram Bot
// API. Telegram does not re-deliver a bot's own sends, so SendMessage
// synthesizes the echo event the engine contract requires.
type Transport struct {
	bot     *api.BotAPI
	logger  *slog.Logger
	handler Handler
}

func NewTransport(cfg config.Telegram, logger *slog.Logger) (*Transport, error) {
	bot, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create new bot: %w", err)
	}
	logger.Info("authorized on telegram", "account", bot.Self.UserName)
	return &Transport{
		bot:    bot,
		logger: logger,
	}, nil
}

// Subscribe registers the event handler. Must be called before Run.
func (t *Transport) Subscribe(handler Handler) {
	t.handler = handler
}

// Run consumes the update channel until the context is canceled.
func (t *Transport) Run(ctx context.Context) error {
	u := api.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			t.handler(ctx, t.convertMessage(update.Message))
		}
	}
}

// SendMessage delivers text to a chat and echoes the sent message back
// through the handler.
func (t *Transport) SendMessage(ctx context.Context, chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse chat id %q: %w", chatID, err)
	}
	sent, err := t.bot.Send(api.NewMessage(id, text))
	if err != nil {
		return fmt.Errorf("failed to send message to chat %s: %w", chatID, err)
	}

	echo := model.ChatMessage{
		ID:        strconv.Itoa(sent.MessageID),
		Body:      text,
		FromMe:    true,
		Timestamp: int64(sent.Date) * 1000,
	}
	if echo.Timestamp <= 0 {
		echo.Timestamp = time.Now().UnixMilli()
	}
	t.handler(
		ctx, usecase.ChatEvent{
			ChatID:  chatID,
			Message: echo,
		},
	)
	return nil
}

// Chats returns nil: bots cannot enumerate their dialogs, so the registry
// seeds lazily from incoming messages instead.
func (t *Transport) Chats(_ context.Context) ([]model.Chat, error) {
	return nil, nil
}

func (t *Transport) convertMessage(message *api.Message) usecase.ChatEvent {
	isGroup := message.Chat.Type == "group" || message.Chat.Type == "supergroup"

	chatName := message.Chat.Title
	var author string
	if message.From != nil {
		author = message.From.UserName
		if author == "" {
			author = message.From.FirstName
		}
		if chatName == "" {
			chatName = author
		}
	}

	fromMe := message.From != nil && message.From.ID == t.bot.Self.ID

	var groupAuthor string
	if isGroup {
		groupAuthor = author
	}

	return usecase.ChatEvent{
		ChatID:   strconv.FormatInt(message.Chat.ID, 10),
		ChatName: chatName,
		IsGroup:  isGroup,
		Message: model.ChatMessage{
			ID:        strconv.Itoa(message.MessageID),
			Body:      message.Text,
			FromMe:    fromMe,
			Timestamp: int64(message.Date) * 1000,
			Author:    groupAuthor,
		},
	}
}
