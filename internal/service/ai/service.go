package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"senyas/internal/config"
)

// FallbackReply is the apology sent for a text message the provider could not answer.
const FallbackReply = "I'm sorry, I'm having trouble processing your message right now."

var defaultModels = map[string]string{
	"gemini": "gemini-2.0-flash",
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-haiku-latest",
}

var errEmptyResponse = errors.New("empty response from model")

// Service sends a single prompt to the configured provider. It keeps no
// history and never retries.
type Service struct {
	chatModel model.BaseChatModel
	provider  string
	timeout   time.Duration
}

// NewService builds the chat model for cfg.Name.
func NewService(ctx context.Context, cfg config.ProviderConfig) (*Service, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Name))
	if provider == "" {
		provider = config.DefaultProvider
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModels[provider]
	}
	token := cfg.Token()
	if token == "" {
		return nil, fmt.Errorf("api key for provider %s not configured", provider)
	}

	chatModel, err := newChatModel(ctx, provider, modelName, token, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("generation client ready", "provider", provider, "model", modelName)
	return &Service{
		chatModel: chatModel,
		provider:  provider,
		timeout:   cfg.Timeout.Duration,
	}, nil
}

// NewServiceWithModel wraps an already constructed chat model.
func NewServiceWithModel(chatModel model.BaseChatModel, timeout time.Duration) *Service {
	return &Service{chatModel: chatModel, provider: "custom", timeout: timeout}
}

func newChatModel(ctx context.Context, provider, modelName, token, baseURL string) (model.BaseChatModel, error) {
	switch provider {
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  token,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini chat model: %w", err)
		}
		return cm, nil
	case "openai":
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
			APIKey:  token,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return cm, nil
	case "claude":
		var baseURLPtr *string
		if baseURL != "" {
			baseURLPtr = &baseURL
		}
		cm, err := claude.NewChatModel(ctx, &claude.Config{
			APIKey:    token,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
		if err != nil {
			return nil, fmt.Errorf("create claude chat model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// Generate sends prompt as one user message and returns the model's text.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("generate content (%s): %w", s.provider, err)
	}
	if resp == nil || resp.Content == "" {
		return "", errEmptyResponse
	}
	return resp.Content, nil
}
