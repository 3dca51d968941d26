package usecase

import (
	"sync"

	"github.com/okravets/llm-chat-assistant/config"
	"github.com/okravets/llm-chat-assistant/internal/model"
)

// SettingsUsecase holds the live LLM and app settings. Both may be
// hot-swapped at runtime; readers get a snapshot that takes effect on their
// next call.
type SettingsUsecase struct {
	mu  sync.RWMutex
	llm model.LLMSettings
	app model.AppSettings
}

func NewSettingsUsecase(cfg *config.Config) *SettingsUsecase {
	return &SettingsUsecase{
		llm: model.LLMSettings{
			Provider:         parseProviderKind(cfg.LLM.Provider),
			APIKey:           cfg.LLM.APIKey,
			APIEndpoint:      cfg.LLM.APIEndpoint,
			Model:            cfg.LLM.Model,
			Temperature:      cfg.LLM.Temperature,
			SystemPrompt:     cfg.LLM.SystemPrompt,
			MaxHistoryLength: cfg.LLM.MaxHistoryLength,
		},
		app: model.AppSettings{
			AutoReplyToAll:    cfg.AutoReply.ReplyToAll,
			SendFallbackReply: cfg.AutoReply.SendFallbackReply,
			ReplyDelay:        parseReplyDelayMode(cfg.AutoReply.DelayMode),
			FixedDelaySeconds: cfg.AutoReply.FixedDelaySeconds,
			MinDelaySeconds:   cfg.AutoReply.MinDelaySeconds,
			MaxDelaySeconds:   cfg.AutoReply.MaxDelaySeconds,
		},
	}
}

func (s *SettingsUsecase) LLMSettings() model.LLMSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llm
}

func (s *SettingsUsecase) AppSettings() model.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

func (s *SettingsUsecase) UpdateLLMSettings(settings model.LLMSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.llm = settings
}

func (s *SettingsUsecase) UpdateAppSettings(settings model.AppSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = settings
}

func parseProviderKind(s string) model.ProviderKind {
	switch s {
	case "local":
		return model.ProviderLocal
	case "custom":
		return model.ProviderCustom
	default:
		return model.ProviderHosted
	}
}

func parseReplyDelayMode(s string) model.ReplyDelayMode {
	switch s {
	case "fixed":
		return model.ReplyDelayFixed
	case "random":
		return model.ReplyDelayRandom
	default:
		return model.ReplyDelayInstant
	}
}
