package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/okravets/llm-chat-assistant/config"
	"github.com/okravets/llm-chat-assistant/internal/model"
	"github.com/okravets/llm-chat-assistant/pkg/tokencount"
)

const (
	completionMaxTokens = 500

	testGreeting       = "Hello, this is a test message. Please respond with a short greeting."
	testPreviewMaxSize = 50

	defaultRequestTimeout = 30 * time.Second
)

// LLMUsecase generates completions across backends: the hosted API, a local
// self-hosted endpoint or an arbitrary OpenAI-compatible custom endpoint.
// Settings are passed per call, so a hot-swap takes effect on the next one.
type LLMUsecase struct {
	cfg    config.LLM
	logger *slog.Logger
}

func NewLLMUsecase(cfg config.LLM, logger *slog.Logger) *LLMUsecase {
	return &LLMUsecase{
		cfg:    cfg,
		logger: logger,
	}
}

// ResolveProvider applies the selection precedence: an API key plus a model
// select the hosted backend, otherwise an endpoint selects local/custom,
// otherwise the configuration is unusable.
func ResolveProvider(settings model.LLMSettings) (model.ProviderKind, error) {
	switch {
	case settings.APIKey != "" && settings.Model != "":
		return model.ProviderHosted, nil
	case settings.APIEndpoint != "":
		if settings.Provider == model.ProviderCustom {
			return model.ProviderCustom, nil
		}
		return model.ProviderLocal, nil
	default:
		return "", ErrNotConfigured
	}
}

// Generate sends the prompt to the selected backend and returns the first
// choice's content. Every backend failure comes back as a *ProviderError;
// a missing configuration comes back as ErrNotConfigured.
func (l *LLMUsecase) Generate(
	ctx context.Context, messages []model.PromptMessage, settings model.LLMSettings,
) (string, error) {
	kind, err := ResolveProvider(settings)
	if err != nil {
		return "", err
	}

	client, err := l.newClient(kind, settings)
	if err != nil {
		return "", err
	}

	timeout := l.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	history := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		history = append(
			history, openai.ChatCompletionMessage{
				Role:    string(message.Role),
				Content: message.Content,
			},
		)
	}

	if l.logger.Enabled(ctx, slog.LevelDebug) {
		if tokens, countErr := tokencount.CountToken(history, settings.Model); countErr == nil {
			l.logger.Debug(
				"sending prompt",
				"provider", kind,
				"messages", len(history),
				"approx_tokens", tokens,
			)
		}
	}

	resp, err := client.CreateChatCompletion(
		ctx, openai.ChatCompletionRequest{
			Model:       settings.Model,
			Temperature: settings.Temperature,
			MaxTokens:   completionMaxTokens,
			Messages:    history,
		},
	)
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Err: ErrEmptyCompletion}
	}
	return resp.Choices[0].Message.Content, nil
}

// TestResult reports the outcome of a configuration test.
type TestResult struct {
	Success bool
	Message string
}

// TestConfiguration runs a fixed test prompt against the given settings.
// The live settings are untouched: every call builds its own client from the
// settings it was handed.
func (l *LLMUsecase) TestConfiguration(ctx context.Context, settings model.LLMSettings) TestResult {
	prompt := []model.PromptMessage{
		{Role: model.RoleSystem, Content: settings.SystemPrompt},
		{Role: model.RoleUser, Content: testGreeting},
	}

	reply, err := l.Generate(ctx, prompt, settings)
	if err != nil {
		return TestResult{
			Success: false,
			Message: fmt.Sprintf("Error testing LLM configuration: %v", err),
		}
	}
	if strings.TrimSpace(reply) == "" {
		return TestResult{
			Success: false,
			Message: "Error testing LLM configuration: empty response",
		}
	}

	preview := reply
	if runes := []rune(preview); len(runes) > testPreviewMaxSize {
		preview = string(runes[:testPreviewMaxSize]) + "..."
	}
	return TestResult{
		Success: true,
		Message: fmt.Sprintf("Test successful! Response: %q", preview),
	}
}

func (l *LLMUsecase) newClient(kind model.ProviderKind, settings model.LLMSettings) (*openai.Client, error) {
	clientConfig := openai.DefaultConfig(settings.APIKey)
	if kind != model.ProviderHosted {
		baseURL, err := normalizeBaseURL(settings.APIEndpoint)
		if err != nil {
			return nil, &ProviderError{Err: err}
		}
		clientConfig.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

// normalizeBaseURL accepts either a bare host URL or a full chat-completions
// URL and returns the /v1 base the client expects.
func normalizeBaseURL(endpoint string) (string, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return "", errors.New("empty api endpoint")
	}
	endpoint = strings.TrimSuffix(endpoint, "/chat/completions")
	if strings.HasSuffix(endpoint, "/v1") {
		return endpoint, nil
	}
	baseURL, err := url.JoinPath(endpoint, "/v1")
	if err != nil {
		return "", fmt.Errorf("failed to join api endpoint path: %w", err)
	}
	return baseURL, nil
}
