package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okravets/llm-chat-assistant/config"
	"github.com/okravets/llm-chat-assistant/internal/model"
)

type recordedRequest struct {
	Path        string
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, content string, requests *[]recordedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				var req recordedRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				req.Path = r.URL.Path
				if requests != nil {
					*requests = append(*requests, req)
				}

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(
					[]byte(`{"object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` +
						mustJSON(t, content) + `},"finish_reason":"stop"}]}`),
				)
			},
		),
	)
}

func mustJSON(t *testing.T, s string) string {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	return string(raw)
}

func newLLMUsecase() *LLMUsecase {
	return NewLLMUsecase(config.LLM{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveProviderPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		settings model.LLMSettings
		want     model.ProviderKind
		wantErr  error
	}{
		{
			name:     "api key and model select hosted",
			settings: model.LLMSettings{APIKey: "sk-test", Model: "gpt-4o-mini"},
			want:     model.ProviderHosted,
		},
		{
			name: "api key and model win over endpoint",
			settings: model.LLMSettings{
				APIKey: "sk-test", Model: "gpt-4o-mini", APIEndpoint: "http://localhost:1234",
			},
			want: model.ProviderHosted,
		},
		{
			name:     "endpoint only selects local",
			settings: model.LLMSettings{APIEndpoint: "http://localhost:11434"},
			want:     model.ProviderLocal,
		},
		{
			name: "endpoint with custom kind selects custom",
			settings: model.LLMSettings{
				Provider: model.ProviderCustom, APIEndpoint: "http://localhost:1234",
			},
			want: model.ProviderCustom,
		},
		{
			name:    "nothing configured fails",
			wantErr: ErrNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				got, err := ResolveProvider(tt.settings)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			},
		)
	}
}

func TestGenerateCustomEndpoint(t *testing.T) {
	var requests []recordedRequest
	server := newCompletionServer(t, "Hi there!", &requests)
	defer server.Close()

	l := newLLMUsecase()
	settings := model.LLMSettings{
		APIEndpoint: server.URL,
		Model:       "llama3",
		Temperature: 0.5,
	}

	got, err := l.Generate(
		context.Background(), []model.PromptMessage{
			{Role: model.RoleSystem, Content: "sys"},
			{Role: model.RoleUser, Content: "hello"},
		}, settings,
	)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", got)

	require.Len(t, requests, 1)
	assert.Equal(t, "/v1/chat/completions", requests[0].Path)
	assert.Equal(t, "llama3", requests[0].Model)
	assert.Equal(t, 500, requests[0].MaxTokens)
	require.Len(t, requests[0].Messages, 2)
	assert.Equal(t, "system", requests[0].Messages[0].Role)
	assert.Equal(t, "user", requests[0].Messages[1].Role)
}

func TestGenerateAcceptsFullCompletionsURL(t *testing.T) {
	var requests []recordedRequest
	server := newCompletionServer(t, "ok", &requests)
	defer server.Close()

	l := newLLMUsecase()
	settings := model.LLMSettings{
		APIEndpoint: server.URL + "/v1/chat/completions",
		Model:       "llama3",
	}

	_, err := l.Generate(
		context.Background(),
		[]model.PromptMessage{{Role: model.RoleUser, Content: "hi"}},
		settings,
	)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "/v1/chat/completions", requests[0].Path)
}

func TestGenerateNotConfigured(t *testing.T) {
	l := newLLMUsecase()

	_, err := l.Generate(
		context.Background(),
		[]model.PromptMessage{{Role: model.RoleUser, Content: "hi"}},
		model.LLMSettings{},
	)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateServerFailureIsProviderError(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		),
	)
	defer server.Close()

	l := newLLMUsecase()
	_, err := l.Generate(
		context.Background(),
		[]model.PromptMessage{{Role: model.RoleUser, Content: "hi"}},
		model.LLMSettings{APIEndpoint: server.URL, Model: "llama3"},
	)

	var providerErr *ProviderError
	assert.ErrorAs(t, err, &providerErr)
}

func TestGenerateNoChoicesIsProviderError(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"object":"chat.completion","choices":[]}`))
			},
		),
	)
	defer server.Close()

	l := newLLMUsecase()
	_, err := l.Generate(
		context.Background(),
		[]model.PromptMessage{{Role: model.RoleUser, Content: "hi"}},
		model.LLMSettings{APIEndpoint: server.URL, Model: "llama3"},
	)

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestTestConfiguration(t *testing.T) {
	var requests []recordedRequest
	server := newCompletionServer(t, "Hello! Nice to meet you.", &requests)
	defer server.Close()

	l := newLLMUsecase()
	result := l.TestConfiguration(
		context.Background(), model.LLMSettings{
			APIEndpoint:  server.URL,
			Model:        "llama3",
			SystemPrompt: "You are helpful",
		},
	)

	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "Hello! Nice to meet you.")

	require.Len(t, requests, 1)
	require.Len(t, requests[0].Messages, 2)
	assert.Equal(t, "You are helpful", requests[0].Messages[0].Content)
	assert.Contains(t, requests[0].Messages[1].Content, "test message")
}

func TestTestConfigurationPreviewKeepsValidUTF8(t *testing.T) {
	server := newCompletionServer(t, strings.Repeat("é", 60), nil)
	defer server.Close()

	l := newLLMUsecase()
	result := l.TestConfiguration(
		context.Background(), model.LLMSettings{APIEndpoint: server.URL, Model: "llama3"},
	)

	require.True(t, result.Success)
	assert.True(t, utf8.ValidString(result.Message))
	assert.Contains(t, result.Message, strings.Repeat("é", 50)+"...")
}

func TestTestConfigurationDoesNotAffectLaterCalls(t *testing.T) {
	var requests []recordedRequest
	server := newCompletionServer(t, "fine", &requests)
	defer server.Close()

	l := newLLMUsecase()

	// A failing test run against a dead endpoint must leave no state behind.
	result := l.TestConfiguration(
		context.Background(), model.LLMSettings{
			APIEndpoint: "http://127.0.0.1:1", Model: "llama3",
		},
	)
	require.False(t, result.Success)

	got, err := l.Generate(
		context.Background(),
		[]model.PromptMessage{{Role: model.RoleUser, Content: "hi"}},
		model.LLMSettings{APIEndpoint: server.URL, Model: "llama3"},
	)
	require.NoError(t, err)
	assert.Equal(t, "fine", got)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "http://localhost:11434", want: "http://localhost:11434/v1"},
		{endpoint: "http://localhost:11434/", want: "http://localhost:11434/v1"},
		{endpoint: "http://localhost:11434/v1", want: "http://localhost:11434/v1"},
		{endpoint: "http://localhost:11434/v1/chat/completions", want: "http://localhost:11434/v1"},
		{endpoint: "   ", wantErr: true},
	}

	for _, tt := range tests {
		got, err := normalizeBaseURL(tt.endpoint)
		if tt.wantErr {
			assert.Error(t, err, tt.endpoint)
			continue
		}
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.want, got, tt.endpoint)
	}
}

func TestProviderErrorUnwraps(t *testing.T) {
	inner := errors.New("inner")
	err := &ProviderError{Err: inner}
	assert.ErrorIs(t, err, inner)
}
