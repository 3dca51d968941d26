package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/okravets/llm-chat-assistant/config"
	"github.com/okravets/llm-chat-assistant/internal/model"
	"github.com/okravets/llm-chat-assistant/pkg/local"
)

var (
	fallbackReplyText = local.NewSet(
		"I'm having trouble connecting to my AI service right now. Please try again later.",
		local.NewTrans(local.Rus, "Сейчас у меня проблемы с подключением к ИИ-сервису. Попробуйте позже."),
	)
	noticeNotConfigured = local.NewSet(
		"Auto-reply is paused: no LLM provider is configured. Add an API key or an endpoint in settings.",
		local.NewTrans(local.Rus, "Автоответ приостановлен: не настроен LLM-провайдер. Укажите API-ключ или адрес в настройках."),
	)
	noticeGenerationFailed = local.NewSet(
		"Failed to generate a reply for chat %s",
		local.NewTrans(local.Rus, "Не удалось сгенерировать ответ для чата %s"),
	)
	noticeSendFailed = local.NewSet(
		"Failed to deliver the generated reply to chat %s",
		local.NewTrans(local.Rus, "Не удалось доставить сгенерированный ответ в чат %s"),
	)
)

// ConversationStorage persists each chat's message log, keyed by chat id.
// Saving overwrites the stored log with the most recent bounded window.
type ConversationStorage interface {
	SaveConversation(ctx context.Context, chatID string, messages []model.ChatMessage) error
	LoadConversation(ctx context.Context, chatID string) ([]model.ChatMessage, error)
}

// Generator produces a completion for a role-tagged prompt.
type Generator interface {
	Generate(ctx context.Context, messages []model.PromptMessage, settings model.LLMSettings) (string, error)
}

// SettingsProvider supplies fresh settings snapshots for every call.
type SettingsProvider interface {
	LLMSettings() model.LLMSettings
	AppSettings() model.AppSettings
}

// Transport accepts outbound sends and enumerates known chats. An
// implementation must also deliver every message as a ChatEvent to the
// subscribed handler — including an echo event (FromMe=true) for each
// outbound send, synthesized if the underlying network does not echo.
type Transport interface {
	SendMessage(ctx context.Context, chatID string, text string) error
	Chats(ctx context.Context) ([]model.Chat, error)
}

// ChatEvent is one inbound or echoed message delivered by the transport.
type ChatEvent struct {
	ChatID   string
	ChatName string
	IsGroup  bool
	Message  model.ChatMessage
}

// Listener receives the UI-facing events: the reordered chat list, each new
// message and user-visible failure notices.
type Listener interface {
	OnChatList(chats []model.Chat)
	OnMessage(chatID string, message model.ChatMessage)
	OnNotice(text string)
}

type nopListener struct{}

func (nopListener) OnChatList([]model.Chat)             {}
func (nopListener) OnMessage(string, model.ChatMessage) {}
func (nopListener) OnNotice(string)                     {}

type chatEntry struct {
	chat  model.Chat
	state model.ChatState
	// awaitingEcho marks that the outbound send of a generated reply is in
	// flight. Armed only for the sending phase, so echoes of manual sends
	// issued during generation stay untagged.
	awaitingEcho bool
}

type AutoReplyUsecaseDeps struct {
	Storage   ConversationStorage
	LLM       Generator
	Settings  SettingsProvider
	Transport Transport
	Listener  Listener
	Prompt    *PromptUsecase
	Logger    *slog.Logger
}

// AutoReplyUsecase is the per-chat state machine deciding, for every inbound
// message, whether to invoke the LLM and send a reply. It owns the chat
// registry; nothing else mutates it.
type AutoReplyUsecase struct {
	AutoReplyUsecaseDeps
	language local.Language

	mu           sync.Mutex
	chats        map[string]*chatEntry
	noticedNoLLM bool

	wg *conc.WaitGroup

	sleep func(time.Duration)
}

func NewAutoReplyUsecase(deps AutoReplyUsecaseDeps, cfg config.AutoReply) *AutoReplyUsecase {
	if deps.Listener == nil {
		deps.Listener = nopListener{}
	}
	if deps.Prompt == nil {
		deps.Prompt = NewPromptUsecase()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AutoReplyUsecase{
		AutoReplyUsecaseDeps: deps,
		language:             local.ParseLanguage(cfg.Language),
		chats:                make(map[string]*chatEntry),
		wg:                   conc.NewWaitGroup(),
		sleep:                time.Sleep,
	}
}

// Bootstrap pre-seeds the registry from the transport's chat listing and the
// conversation store. Chats unknown to either are created lazily on first
// observed activity instead.
func (a *AutoReplyUsecase) Bootstrap(ctx context.Context) {
	listed, err := a.Transport.Chats(ctx)
	if err != nil {
		a.Logger.Warn("failed to list chats from transport", "error", err)
		return
	}

	a.mu.Lock()
	for _, chat := range listed {
		if _, ok := a.chats[chat.ID]; ok {
			continue
		}
		saved, loadErr := a.Storage.LoadConversation(ctx, chat.ID)
		if loadErr != nil {
			a.Logger.Warn("failed to load conversation", "chat_id", chat.ID, "error", loadErr)
		}
		chat.Messages = saved
		if len(saved) > 0 {
			last := saved[len(saved)-1]
			chat.LastMessage = &last
		}
		a.chats[chat.ID] = &chatEntry{chat: chat}
	}
	a.mu.Unlock()

	a.notifyChatList()
}

// HandleEvent consumes one transport event: an inbound message or the echo
// of an outbound send.
func (a *AutoReplyUsecase) HandleEvent(ctx context.Context, event ChatEvent) {
	msg := event.Message

	a.mu.Lock()
	entry := a.ensureChatLocked(event)

	if msg.FromMe && entry.awaitingEcho && entry.state == model.StateSending {
		// The echo of our own generated reply: tag it and close the cycle.
		msg.IsLLMResponse = true
		entry.awaitingEcho = false
		entry.state = model.StateIdle
	}
	a.appendLocked(entry, msg)
	snapshot := copyMessages(entry.chat.Messages)

	var (
		startGeneration bool
		chatCopy        model.Chat
		llmSettings     model.LLMSettings
		appSettings     model.AppSettings
	)
	if !msg.FromMe {
		llmSettings = a.Settings.LLMSettings()
		appSettings = a.Settings.AppSettings()
		eligible := (entry.chat.AutoReplyEnabled || appSettings.AutoReplyToAll) &&
			entry.state == model.StateIdle
		if eligible {
			if _, err := ResolveProvider(llmSettings); err != nil {
				a.noticeNotConfiguredLocked()
			} else {
				entry.state = model.StateGenerating
				chatCopy = entry.chat
				chatCopy.Messages = snapshot
				startGeneration = true
			}
		}
	}
	a.mu.Unlock()

	a.persist(ctx, event.ChatID, snapshot)
	a.Listener.OnMessage(event.ChatID, msg)
	a.notifyChatList()

	if startGeneration {
		a.wg.Go(
			func() {
				a.generateAndSend(ctx, chatCopy, llmSettings, appSettings)
			},
		)
	}
}

func (a *AutoReplyUsecase) generateAndSend(
	ctx context.Context, chat model.Chat, llmSettings model.LLMSettings, appSettings model.AppSettings,
) {
	prompt := a.Prompt.BuildPrompt(chat, llmSettings)

	reply, err := a.LLM.Generate(ctx, prompt, llmSettings)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		a.abortGeneration(ctx, chat.ID, appSettings, err)
		return
	}

	a.mu.Lock()
	if entry, ok := a.chats[chat.ID]; ok {
		entry.state = model.StateSending
		entry.awaitingEcho = true
	}
	a.mu.Unlock()

	a.applyReplyDelay(appSettings)

	if err := a.Transport.SendMessage(ctx, chat.ID, reply); err != nil {
		a.handleSendFailure(ctx, chat.ID, reply, err)
		return
	}
	// The transport echoes the send back as a FromMe event; that path tags
	// the message and returns the chat to idle.
}

// abortGeneration returns the chat to idle without sending anything. When
// the fallback reply is explicitly enabled, a canned text is sent as a plain
// outbound message: the marker is cleared first, so its echo is never tagged
// as an LLM response.
func (a *AutoReplyUsecase) abortGeneration(
	ctx context.Context, chatID string, appSettings model.AppSettings, genErr error,
) {
	a.mu.Lock()
	if entry, ok := a.chats[chatID]; ok {
		entry.awaitingEcho = false
		entry.state = model.StateIdle
	}
	a.mu.Unlock()

	if errors.Is(genErr, ErrNotConfigured) {
		a.mu.Lock()
		a.noticeNotConfiguredLocked()
		a.mu.Unlock()
		return
	}

	a.Logger.Error("failed to generate auto-reply", "chat_id", chatID, "error", genErr)
	a.Listener.OnNotice(noticeGenerationFailed.Format(a.language, chatID))

	if appSettings.SendFallbackReply {
		if err := a.Transport.SendMessage(ctx, chatID, fallbackReplyText.Text(a.language)); err != nil {
			a.Logger.Error("failed to send fallback reply", "chat_id", chatID, "error", err)
		}
	}
}

// handleSendFailure keeps the generated text in the in-memory history but
// surfaces the failed delivery instead of pretending it went out.
func (a *AutoReplyUsecase) handleSendFailure(ctx context.Context, chatID, reply string, sendErr error) {
	a.Logger.Error("failed to send auto-reply", "chat_id", chatID, "error", sendErr)

	msg := model.ChatMessage{
		ID:            newMessageID(),
		Body:          reply,
		FromMe:        true,
		Timestamp:     time.Now().UnixMilli(),
		IsLLMResponse: true,
	}

	a.mu.Lock()
	entry, ok := a.chats[chatID]
	var snapshot []model.ChatMessage
	if ok {
		entry.awaitingEcho = false
		entry.state = model.StateIdle
		a.appendLocked(entry, msg)
		snapshot = copyMessages(entry.chat.Messages)
	}
	a.mu.Unlock()

	if ok {
		a.persist(ctx, chatID, snapshot)
		a.Listener.OnMessage(chatID, msg)
	}
	a.Listener.OnNotice(noticeSendFailed.Format(a.language, chatID))
	a.notifyChatList()
}

// ToggleAutoReply switches per-chat auto-reply on or off.
func (a *AutoReplyUsecase) ToggleAutoReply(chatID string, enabled bool) {
	a.mu.Lock()
	entry, ok := a.chats[chatID]
	if !ok {
		entry = &chatEntry{chat: model.Chat{ID: chatID}}
		a.chats[chatID] = entry
	}
	entry.chat.AutoReplyEnabled = enabled
	a.mu.Unlock()

	a.notifyChatList()
}

// SendMessage sends a user-typed message. Its echo is recorded as a plain
// outbound message, never as an LLM response.
func (a *AutoReplyUsecase) SendMessage(ctx context.Context, chatID, text string) error {
	if err := a.Transport.SendMessage(ctx, chatID, text); err != nil {
		return &SendError{ChatID: chatID, Err: err}
	}
	return nil
}

// GetHistory returns the chat's message log and clears its unread count.
func (a *AutoReplyUsecase) GetHistory(chatID string) []model.ChatMessage {
	a.mu.Lock()
	entry, ok := a.chats[chatID]
	var history []model.ChatMessage
	if ok {
		entry.chat.UnreadCount = 0
		history = copyMessages(entry.chat.Messages)
	}
	a.mu.Unlock()

	a.notifyChatList()
	return history
}

// Chats returns chat summaries ordered newest-timestamp first.
func (a *AutoReplyUsecase) Chats() []model.Chat {
	a.mu.Lock()
	chats := make([]model.Chat, 0, len(a.chats))
	for _, entry := range a.chats {
		chat := entry.chat
		chat.Messages = nil
		chats = append(chats, chat)
	}
	a.mu.Unlock()

	model.SortChatsByTimestamp(chats)
	return chats
}

// Wait blocks until all in-flight generation pipelines have finished.
func (a *AutoReplyUsecase) Wait() {
	a.wg.Wait()
}

func (a *AutoReplyUsecase) ensureChatLocked(event ChatEvent) *chatEntry {
	entry, ok := a.chats[event.ChatID]
	if !ok {
		entry = &chatEntry{
			chat: model.Chat{
				ID:      event.ChatID,
				Name:    event.ChatName,
				IsGroup: event.IsGroup,
			},
		}
		a.chats[event.ChatID] = entry
	}
	if entry.chat.Name == "" && event.ChatName != "" {
		entry.chat.Name = event.ChatName
	}
	return entry
}

func (a *AutoReplyUsecase) appendLocked(entry *chatEntry, msg model.ChatMessage) {
	entry.chat.Messages = append(entry.chat.Messages, msg)
	entry.chat.LastMessage = &msg
	if msg.Timestamp > 0 {
		entry.chat.Timestamp = msg.Timestamp
	} else {
		entry.chat.Timestamp = time.Now().UnixMilli()
	}
	if !msg.FromMe {
		entry.chat.UnreadCount++
	}
}

func (a *AutoReplyUsecase) noticeNotConfiguredLocked() {
	if a.noticedNoLLM {
		return
	}
	a.noticedNoLLM = true
	a.Listener.OnNotice(noticeNotConfigured.Text(a.language))
}

func (a *AutoReplyUsecase) persist(ctx context.Context, chatID string, messages []model.ChatMessage) {
	if err := a.Storage.SaveConversation(ctx, chatID, messages); err != nil {
		// In-memory state stays authoritative for the session.
		a.Logger.Warn("failed to persist conversation", "chat_id", chatID, "error", err)
	}
}

func (a *AutoReplyUsecase) notifyChatList() {
	a.Listener.OnChatList(a.Chats())
}

func (a *AutoReplyUsecase) applyReplyDelay(appSettings model.AppSettings) {
	switch appSettings.ReplyDelay {
	case model.ReplyDelayFixed:
		if appSettings.FixedDelaySeconds > 0 {
			a.sleep(time.Duration(appSettings.FixedDelaySeconds) * time.Second)
		}
	case model.ReplyDelayRandom:
		minDelay, maxDelay := appSettings.MinDelaySeconds, appSettings.MaxDelaySeconds
		if minDelay < 0 {
			minDelay = 0
		}
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		a.sleep(time.Duration(minDelay+rand.Intn(maxDelay-minDelay+1)) * time.Second)
	}
}

func newMessageID() string {
	return uuid.NewString()
}

func copyMessages(messages []model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, len(messages))
	copy(out, messages)
	return out
}
